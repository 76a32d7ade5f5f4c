package app

import (
	"io"
	"net/http"
	"testing"

	"github.com/flagonhq/flagon/models"
)

func TestOpenResource(t *testing.T) {
	buf := setLogBuffer()
	dir := staticRoot(t, map[string]string{
		"data/words.txt": "flagon",
	})
	a := testApp(t, WithRootPath(dir))

	f, err := a.OpenResource("data/words.txt")
	if err != nil {
		t.Log(buf.String())
		t.Fatal(err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil || string(b) != "flagon" {
		t.Log(buf.String())
		t.Errorf("Expected the file contents but got %q (%v)", b, err)
	}
}

func TestOpenResourceErrors(t *testing.T) {
	buf := setLogBuffer()
	dir := staticRoot(t, map[string]string{
		"present.txt": "here",
	})
	a := testApp(t, WithRootPath(dir))

	for i, test := range []struct {
		resource     string
		expectedCode int
	}{
		{"absent.txt", http.StatusNotFound},
		{"../outside.txt", http.StatusBadRequest},
		{"/etc/passwd", http.StatusBadRequest},
		{"", http.StatusBadRequest},
	} {
		_, err := a.OpenResource(test.resource)
		apiErr, ok := err.(models.APIError)
		if !ok {
			t.Log(buf.String())
			t.Errorf("Test %d: Expected an api error but got %v", i, err)
			continue
		}
		if apiErr.Code() != test.expectedCode {
			t.Log(buf.String())
			t.Errorf("Test %d: Expected code %d but got %d", i, test.expectedCode, apiErr.Code())
		}
	}
}

func TestOpenInstanceResource(t *testing.T) {
	buf := setLogBuffer()
	dir := staticRoot(t, map[string]string{
		"instance/app.db": "bits",
	})
	a := testApp(t, WithRootPath(dir))

	f, err := a.OpenInstanceResource("app.db")
	if err != nil {
		t.Log(buf.String())
		t.Fatal(err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil || string(b) != "bits" {
		t.Log(buf.String())
		t.Errorf("Expected the file contents but got %q (%v)", b, err)
	}
}
