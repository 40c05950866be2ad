// Package radix50 implements DEC's RADIX-50 (also called RAD50) character
// packing, used by both RT-11 and XXDP to cram 6.3 filenames into 16-bit
// words. Three characters pack into one word as ((c0*40+c1)*40+c2).
package radix50

import (
	"github.com/pkg/errors"
)

// charset is the PDP-11 RADIX-50 alphabet: space, A-Z, $, ., %, 0-9.
// Digits sit at values 30..39; 29 is the rarely-seen %.
const charset = " ABCDEFGHIJKLMNOPQRSTUVWXYZ$.%0123456789"

var charValue = func() map[byte]uint16 {
	m := make(map[byte]uint16, len(charset))
	for i := 0; i < len(charset); i++ {
		m[charset[i]] = uint16(i)
	}
	return m
}()

// Encode packs text (padded/truncated to a multiple of 3 characters by the
// caller) into RADIX-50 words, one word per 3 input characters. len(text)
// must be a multiple of 3.
func Encode(text string) ([]uint16, error) {
	if len(text)%3 != 0 {
		return nil, errors.Errorf("radix50: text length %d not a multiple of 3", len(text))
	}
	words := make([]uint16, 0, len(text)/3)
	for i := 0; i < len(text); i += 3 {
		var word uint16
		for j := 0; j < 3; j++ {
			v, ok := charValue[text[i+j]]
			if !ok {
				return nil, errors.Errorf("radix50: invalid character %q", text[i+j])
			}
			word = word*40 + v
		}
		words = append(words, word)
	}
	return words, nil
}

// Decode unpacks RADIX-50 words back into a string of len(words)*3 bytes.
func Decode(words []uint16) string {
	out := make([]byte, 0, len(words)*3)
	for _, w := range words {
		c2 := w % 40
		w /= 40
		c1 := w % 40
		w /= 40
		c0 := w % 40
		out = append(out, charset[c0], charset[c1], charset[c2])
	}
	return string(out)
}
