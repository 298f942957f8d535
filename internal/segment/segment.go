// Package segment maps display characters to TLC5916 output patterns for one
// seven-segment digit.
//
//	     a
//	   -----
//	f |  g  | b
//	   -----
//	e |     | c
//	   -----  . P
//	     d
//
// The digit is wired to the driver chip as
// OUT0=b OUT1=g OUT2=c OUT3=P OUT4=d OUT5=e OUT6=f OUT7=a.
package segment

// Width is the number of driver outputs per digit.
const Width = 8

// wiring gives the segment letter attached to each driver output.
var wiring = [Width]byte{'b', 'g', 'c', 'P', 'd', 'e', 'f', 'a'}

// table lists the lit segments for every displayable character.
var table = map[rune]string{
	'0': "abcdef",
	'1': "bc",
	'2': "abged",
	'3': "abgcd",
	'4': "fgbc",
	'5': "afgcd",
	'6': "afedcg",
	'7': "fabc",
	'8': "abcdefg",
	'9': "gfabcd",
	'-': "g",
	' ': "",
}

// Segments returns the lit segment letters for c and whether c is displayable.
func Segments(c rune) (string, bool) {
	s, ok := table[c]
	return s, ok
}

// Encode returns the output pattern for c, index i driving OUTi.
// Characters without a table entry return nil: nothing is shifted in for
// them. A space returns Width false values.
func Encode(c rune) []bool {
	lit, ok := table[c]
	if !ok {
		return nil
	}
	bits := make([]bool, Width)
	for i, seg := range wiring {
		bits[i] = contains(lit, seg)
	}
	return bits
}

func contains(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
