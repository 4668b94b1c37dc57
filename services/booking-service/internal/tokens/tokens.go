// Package tokens generates the short customer-facing appointment tokens.
//
// Two schemes exist. Regular bookings get a random letter and four digits
// ("Q-4821"). Queue bookings get a structured code built from the shop id and
// the customer's position in that day's queue ("T07-012").
package tokens

import (
	"fmt"
	"math/rand/v2"
)

// Generator produces candidate tokens. attempt starts at 0 and increases each
// time the previous candidate was already taken.
type Generator interface {
	Generate(attempt int) string
}

// LetterDigits yields tokens of the form A-0000 drawn uniformly from the
// 26*10000 space. IntN defaults to math/rand/v2.
type LetterDigits struct {
	IntN func(n int) int
}

func (g LetterDigits) Generate(int) string {
	intN := g.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return fmt.Sprintf("%c-%04d", 'A'+rune(intN(26)), intN(10000))
}

const maxQueuePosition = 999

// Queue yields T<shop>-<position> tokens. Start is the first position to try;
// each retry advances by one and wraps from 999 back to 1.
type Queue struct {
	ShopID int64
	Start  int
}

func (g Queue) Generate(attempt int) string {
	return fmt.Sprintf("T%02d-%03d", g.ShopID, g.Position(attempt))
}

func (g Queue) Position(attempt int) int {
	start := g.Start
	if start < 1 {
		start = 1
	}
	return (start-1+attempt)%maxQueuePosition + 1
}

// Space is the number of distinct tokens a generator can produce, used to bound retries.
func Space(g Generator) int {
	switch g.(type) {
	case Queue, *Queue:
		return maxQueuePosition
	default:
		return 26 * 10000
	}
}
