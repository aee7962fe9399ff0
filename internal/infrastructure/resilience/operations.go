package resilience

// Remote calls made while producing a quote. Each operation gets its own breaker.
const (
	OpRender          = "pdfservices.render"
	OpUpload          = "pdfservices.upload"
	OpCompress        = "pdfservices.compress"
	OpTaskStatus      = "pdfservices.task_status"
	OpDownload        = "pdfservices.download"
	OpRecommend       = "ai.chat_completion"
	OpPublishCompress = "nats.publish"
)

// singleAttemptOps are never retried by the executor. Rendering is billed per
// call and status is already polled by the compression pipeline.
var singleAttemptOps = map[string]bool{
	OpRender:     true,
	OpTaskStatus: true,
}
