// Package annexb implements a small, dependency-free Annex-B NAL unit
// scanner and H.264 key-frame/parameter-set detector, used by
// codec/passthrough's reference codec. The reorder buffer does not use it;
// it reads the key-frame flag from the wire header.
package annexb

// nalType extracts the H.264 NAL unit type from its one-byte header.
func nalType(header byte) int { return int(header & 0x1f) }

// IDR and parameter-set NAL unit types (H.264).
const (
	NALTypeSliceNonIDR = 1
	NALTypeSliceIDR    = 5
	NALTypeSEI         = 6
	NALTypeSPS         = 7
	NALTypePPS         = 8
)

// Split scans an Annex-B byte stream (NAL units separated by 00 00 01 or
// 00 00 00 01 start codes) and returns each NAL unit's payload, excluding
// its start code.
func Split(stream []byte) [][]byte {
	starts := findStartCodes(stream)
	if len(starts) == 0 {
		return nil
	}
	units := make([][]byte, 0, len(starts))
	for i, s := range starts {
		end := len(stream)
		if i+1 < len(starts) {
			end = starts[i+1].codeStart
		}
		if s.nalStart >= end {
			continue
		}
		units = append(units, stream[s.nalStart:end])
	}
	return units
}

type startCode struct {
	codeStart int
	nalStart  int
}

func findStartCodes(b []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(b); {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			out = append(out, startCode{codeStart: i, nalStart: i + 3})
			i += 3
			continue
		}
		if i+3 < len(b) && b[i] == 0 && b[i+1] == 0 && b[i+2] == 0 && b[i+3] == 1 {
			out = append(out, startCode{codeStart: i, nalStart: i + 4})
			i += 4
			continue
		}
		i++
	}
	return out
}

// IsKeyFrame reports whether the Annex-B access unit contains an IDR
// slice NAL unit, i.e. whether decoding can start fresh from it.
func IsKeyFrame(accessUnit []byte) bool {
	for _, nal := range Split(accessUnit) {
		if len(nal) == 0 {
			continue
		}
		if nalType(nal[0]) == NALTypeSliceIDR {
			return true
		}
	}
	return false
}

// IsConfig reports whether the access unit carries only parameter-set
// (SPS/PPS) NAL units, i.e. out-of-band decoder configuration rather than
// a displayable frame.
func IsConfig(accessUnit []byte) bool {
	nals := Split(accessUnit)
	if len(nals) == 0 {
		return false
	}
	for _, nal := range nals {
		if len(nal) == 0 {
			continue
		}
		t := nalType(nal[0])
		if t != NALTypeSPS && t != NALTypePPS {
			return false
		}
	}
	return true
}
