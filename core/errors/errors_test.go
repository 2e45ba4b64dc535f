package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructuralError(t *testing.T) {
	tests := []struct {
		name    string
		err     *StructuralError
		wantMsg string
	}{
		{
			name:    "with document",
			err:     &StructuralError{Document: "kjv.xml", Tag: "html", Message: "expected osis, osisText or div"},
			wantMsg: "structural error in kjv.xml: expected osis, osisText or div (got <html>)",
		},
		{
			name:    "without document",
			err:     &StructuralError{Tag: "osis", Message: "missing osisText"},
			wantMsg: "structural error: missing osisText (got <osis>)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrStructural) {
				t.Errorf("errors.Is(%v, ErrStructural) = false", tt.err)
			}
		})
	}
}

func TestStrictError(t *testing.T) {
	err := &StrictError{Document: "web.xml", Diagnostics: 3}
	if got, want := err.Error(), "web.xml: 3 diagnostic(s) recorded"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !Is(err, ErrStrict) {
		t.Error("StrictError should match ErrStrict")
	}
	if Is(err, ErrStructural) {
		t.Error("StrictError should not match ErrStructural")
	}
}

func TestIOError(t *testing.T) {
	baseErr := fmt.Errorf("permission denied")
	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     &IOError{Operation: "read", Path: "/test/file.xml", Err: baseErr},
			wantMsg: "failed to read /test/file.xml: permission denied",
		},
		{
			name:    "without path",
			err:     &IOError{Operation: "write", Err: baseErr},
			wantMsg: "failed to write: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, baseErr) {
				t.Errorf("Unwrap() = %v, want %v", got, baseErr)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ParseError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with path",
			err:      &ParseError{Format: "YAML", Path: "quirks.yaml", Message: "unexpected EOF"},
			wantMsg:  "failed to parse YAML at quirks.yaml: unexpected EOF",
			wantBase: ErrInvalidInput,
		},
		{
			name:     "without path",
			err:      &ParseError{Format: "XML", Message: "malformed tag"},
			wantMsg:  "failed to parse XML: malformed tag",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("yaml: line 2: mapping values are not allowed")
		err := NewParse("YAML", "quirks.yaml", underlyingErr)
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
		if err.Message != underlyingErr.Error() {
			t.Errorf("Message = %q, want %q", err.Message, underlyingErr.Error())
		}
	})
}

func TestHelperFunctions(t *testing.T) {
	t.Run("NewStructural", func(t *testing.T) {
		err := NewStructural("doc", "html", "expected osis")
		if err.Document != "doc" || err.Tag != "html" || err.Message != "expected osis" {
			t.Errorf("NewStructural() = %+v, unexpected values", err)
		}
	})

	t.Run("NewIO", func(t *testing.T) {
		baseErr := fmt.Errorf("disk full")
		err := NewIO("write", "/tmp/test", baseErr)
		if err.Operation != "write" || err.Path != "/tmp/test" || err.Err != baseErr {
			t.Errorf("NewIO() = %+v, unexpected values", err)
		}
	})
}

func TestWrap(t *testing.T) {
	t.Run("wraps error", func(t *testing.T) {
		wrapped := Wrap(ErrStructural, "kjv.xml")
		if !errors.Is(wrapped, ErrStructural) {
			t.Errorf("Wrap() error does not unwrap to base error")
		}
		if got, want := wrapped.Error(), "kjv.xml: unrecognized document structure"; got != want {
			t.Errorf("Wrap() = %q, want %q", got, want)
		}
	})

	t.Run("nil error returns nil", func(t *testing.T) {
		if got := Wrap(nil, "context"); got != nil {
			t.Errorf("Wrap(nil) = %v, want nil", got)
		}
	})
}

func TestWrapf(t *testing.T) {
	baseErr := fmt.Errorf("base error")
	wrapped := Wrapf(baseErr, "failed to process %s", "file.xml")
	if !errors.Is(wrapped, baseErr) {
		t.Errorf("Wrapf() error does not unwrap to base error")
	}
	if got, want := wrapped.Error(), "failed to process file.xml: base error"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if got := Wrapf(nil, "context %s", "test"); got != nil {
		t.Errorf("Wrapf(nil) = %v, want nil", got)
	}
}

func TestAs(t *testing.T) {
	err := Wrap(NewStructural("doc", "html", "expected osis"), "convert")
	var se *StructuralError
	if !As(err, &se) {
		t.Fatal("As() failed to match StructuralError")
	}
	if se.Tag != "html" {
		t.Errorf("As() se.Tag = %q, want %q", se.Tag, "html")
	}
}
