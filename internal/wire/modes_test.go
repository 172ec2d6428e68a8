package wire

import "testing"

func TestModesVersionAndEncoding(t *testing.T) {
	m := OperationalModes(0x00000202) // version 2, UTF16BE
	if m.Version() != 2 {
		t.Errorf("Version() = %d, want 2", m.Version())
	}
	if m.EncodingBits() != 2 {
		t.Errorf("EncodingBits() = %d, want 2", m.EncodingBits())
	}
}

func TestModesCompressionAlgorithm(t *testing.T) {
	tests := []struct {
		name     string
		modes    OperationalModes
		wantTSSC bool
		wantGZip bool
	}{
		{"no compression", 0x00000002, false, false},
		{"tssc", ModeCompressPayloadData | (AlgorithmTSSC << modesAlgorithmShift), true, false},
		{"gzip", ModeCompressPayloadData | (AlgorithmGZip << modesAlgorithmShift), false, true},
		{"algorithm bits without payload flag", AlgorithmTSSC << modesAlgorithmShift, false, false},
	}

	for _, tt := range tests {
		if got := tt.modes.UsesTSSC(); got != tt.wantTSSC {
			t.Errorf("%s: UsesTSSC() = %v, want %v", tt.name, got, tt.wantTSSC)
		}
		if got := tt.modes.UsesGZip(); got != tt.wantGZip {
			t.Errorf("%s: UsesGZip() = %v, want %v", tt.name, got, tt.wantGZip)
		}
	}
}

func TestWithoutPayloadCompression(t *testing.T) {
	m := ModeCompressPayloadData | ModeCompressSignalIndexCache | (AlgorithmTSSC << modesAlgorithmShift)
	cleared := m.WithoutPayloadCompression()

	if cleared.UsesTSSC() {
		t.Error("WithoutPayloadCompression should clear the algorithm submask")
	}
	if cleared&ModeCompressSignalIndexCache == 0 {
		t.Error("WithoutPayloadCompression should not clear unrelated flags")
	}
}
