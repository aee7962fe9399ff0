package pricing

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"
)

const (
	quoteIDPrefix    = "QT-"
	quoteIDSuffixLen = 5
	base36Alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// QuoteIDGenerator builds ids of the form QT-<base36 millis>-<5 random chars>.
type QuoteIDGenerator struct {
	now    func() time.Time
	random func(n int) string
}

func NewQuoteIDGenerator(now func() time.Time, random func(n int) string) *QuoteIDGenerator {
	if now == nil {
		now = time.Now
	}
	if random == nil {
		random = randomBase36
	}
	return &QuoteIDGenerator{now: now, random: random}
}

func (g *QuoteIDGenerator) Next() string {
	millis := strconv.FormatInt(g.now().UnixMilli(), 36)
	return strings.ToUpper(quoteIDPrefix + millis + "-" + g.random(quoteIDSuffixLen))
}

func randomBase36(n int) string {
	var b strings.Builder
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(base36Alphabet[idx.Int64()])
	}
	return b.String()
}
