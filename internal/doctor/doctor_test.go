package doctor

import "testing"

func TestBinaryCheckMissing(t *testing.T) {
	c := binaryCheck("bogus", "definitely-not-a-binary-xyz", "--version")
	if c.OK {
		t.Fatal("expected failure for missing binary")
	}
	if c.Detail == "" {
		t.Fatal("expected detail naming the binary")
	}
}

func TestBinaryCheckPresent(t *testing.T) {
	c := binaryCheck("shell", "sh", "-version")
	// sh -version may exit non-zero on some shells; only LookPath matters here.
	if !c.OK && c.Detail == "sh not found on PATH" {
		t.Fatal("sh should be on PATH in the test environment")
	}
}
