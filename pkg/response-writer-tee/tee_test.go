package tee

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSaverRecordsAndTees(t *testing.T) {
	rr := httptest.NewRecorder()
	rs := NewResponseSaver(rr)
	rs.Header().Set("Content-Type", "text/css")
	rs.WriteHeader(http.StatusNotFound)
	rs.Write([]byte("body { }"))

	if rr.Code != http.StatusNotFound || rr.Body.String() != "body { }" {
		t.Fatalf("Underlying writer got %d %s", rr.Code, rr.Body.String())
	}
	res, err := rs.Result(nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusNotFound || string(body) != "body { }" {
		t.Fatalf("Recorded response is %d %s", res.StatusCode, body)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/css" {
		t.Fatalf("Content-Type is %s", ct)
	}
}

func TestSaverWithoutWriter(t *testing.T) {
	rs := NewResponseSaver(nil)
	rs.Write([]byte("hello"))
	if rs.StatusCode() != http.StatusOK {
		t.Fatalf("Status is %d", rs.StatusCode())
	}
	res, err := rs.Result(nil)
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	if string(body) != "hello" {
		t.Fatalf("Body is %s", body)
	}
}

func TestSaverEmptyResponse(t *testing.T) {
	rs := NewResponseSaver(nil)
	res, err := rs.Result(nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Status is %d", res.StatusCode)
	}
}
