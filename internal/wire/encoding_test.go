package wire

import "testing"

func TestEncodingRoundTrip(t *testing.T) {
	samples := []string{"", "hello world", "FILTER ActiveMeasurements WHERE SignalType='FREQ'"}
	encodings := []Encoding{EncodingUTF8, EncodingUTF16LE, EncodingUTF16BE}

	for _, enc := range encodings {
		for _, s := range samples {
			b, err := enc.Encode(s)
			if err != nil {
				t.Fatalf("%v: encode(%q) error: %v", enc, s, err)
			}
			got, err := enc.Decode(b)
			if err != nil {
				t.Fatalf("%v: decode error: %v", enc, err)
			}
			if got != s {
				t.Errorf("%v: round trip %q -> %q", enc, s, got)
			}
		}
	}
}

func TestEncodingFromModes(t *testing.T) {
	tests := []struct {
		modes uint32
		want  Encoding
		ok    bool
	}{
		{0x00000002, EncodingUTF8, true},
		{0x00000102, EncodingUTF16LE, true},
		{0x00000202, EncodingUTF16BE, true},
	}

	for _, tt := range tests {
		got, ok := EncodingFromModes(tt.modes)
		if got != tt.want || ok != tt.ok {
			t.Errorf("EncodingFromModes(0x%x) = (%v, %v), want (%v, %v)", tt.modes, got, ok, tt.want, tt.ok)
		}
	}
}
