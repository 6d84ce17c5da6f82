package progress

import (
	"bytes"
	"testing"
)

func TestCIReporter(t *testing.T) {
	var buf bytes.Buffer
	r := &CIReporter{Description: "Downloading cats_by_bot", W: &buf}

	r.Start(2)
	r.Update(1, "0.webp")
	r.Update(2, "1.tgs")
	r.Finish()

	want := "Downloading cats_by_bot: 2 items\n[1/2] 0.webp\n[2/2] 1.tgs\nDownloading cats_by_bot: done\n"
	if buf.String() != want {
		t.Errorf("output =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestNewReporterUnderCI(t *testing.T) {
	t.Setenv("CI", "true")
	if _, ok := NewReporter("x").(*CIReporter); !ok {
		t.Error("expected CIReporter when CI is set")
	}
}
