package content

import "math/rand"

// DrawingPrompts is the word list the drawer picks from, one per turn.
var DrawingPrompts = []string{
	"pacifier",
	"stroller",
	"rattle",
	"crib",
	"bottle",
	"diaper",
	"teddy bear",
	"bib",
	"stork",
	"rubber duck",
	"onesie",
	"high chair",
	"baby shoes",
	"mobile",
	"car seat",
}

// ShuffledPrompts returns a shuffled copy of DrawingPrompts using r.
func ShuffledPrompts(r *rand.Rand) []string {
	out := make([]string, len(DrawingPrompts))
	copy(out, DrawingPrompts)
	r.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
