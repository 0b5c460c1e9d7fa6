package sbf

import "fmt"

// svidRange maps a range of SVIDs onto the satellites of one
// constellation.
type svidRange struct {
	first, last uint8
	system      byte
	offset      int
}

// The SVID numbering of the SBF reference guide.  62 is a GLONASS
// satellite with an unknown slot and 107-119 are L-band beams, so they
// have no RINEX code.
var svidRanges = []svidRange{
	{1, 37, 'G', 0},
	{38, 61, 'R', 37},
	{63, 68, 'R', 38},
	{71, 106, 'E', 70},
	{120, 140, 'S', 100},
	{141, 180, 'C', 140},
	{181, 190, 'J', 180},
	{191, 197, 'I', 190},
	{198, 215, 'S', 157},
	{216, 222, 'I', 208},
	{223, 245, 'C', 182},
}

// SatelliteCode returns the RINEX code for an SVID, for example "E11" for
// 81.  It returns an empty string if the SVID doesn't name a satellite.
func SatelliteCode(svid uint8) string {
	for _, r := range svidRanges {
		if svid >= r.first && svid <= r.last {
			return fmt.Sprintf("%c%02d", r.system, int(svid)-r.offset)
		}
	}
	return ""
}
