package config

import "testing"

type dumbLogger struct{ infos []string }

func (dl *dumbLogger) Log(l int8, m string, a ...interface{})  {}
func (dl *dumbLogger) SetLevel(l int8)                         {}
func (dl *dumbLogger) Debug(msg string, args ...interface{})   {}
func (dl *dumbLogger) Info(msg string, args ...interface{})    { dl.infos = append(dl.infos, msg) }
func (dl *dumbLogger) Warning(msg string, args ...interface{}) {}
func (dl *dumbLogger) Error(msg string, args ...interface{})   {}
func (dl *dumbLogger) Fatal(msg string, args ...interface{})   {}

func TestValidateFillsDefaults(t *testing.T) {
	dl := &dumbLogger{}
	c := Config{Pictures: "out.seq", Logger: dl}

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
	if c.MinExpand != DefaultMinExpand {
		t.Errorf("MinExpand = %d, want default %d", c.MinExpand, DefaultMinExpand)
	}
	if c.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want default %d", c.Workers, DefaultWorkers)
	}
	if len(dl.infos) == 0 {
		t.Error("expected Validate to log the defaulted fields")
	}
}

func TestValidateRejectsMissingPictures(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() with no Pictures dir, want error")
	}
}

func TestValidateRejectsBadSubsample(t *testing.T) {
	c := Config{Pictures: "out.seq", Subsample: 3}
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() with Subsample=3, want error")
	}
}

func TestSingleFrameFormatExtension(t *testing.T) {
	cases := map[SingleFrameFormat]string{
		FormatPNG:  "png",
		FormatJPG:  "jpg",
		FormatNull: "",
	}
	for f, want := range cases {
		if got := f.Extension(); got != want {
			t.Errorf("%v.Extension() = %q, want %q", f, got, want)
		}
	}
}
