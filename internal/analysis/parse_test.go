package analysis

import (
	"reflect"
	"testing"
)

func TestParseModelOutput_Array(t *testing.T) {
	res := ParseModelOutput(`[{"expr": "2 + 3", "result": 5}, "{\"expr\": \"x\", \"result\": 1}", "plain words", 42]`)
	if res.Failed {
		t.Fatalf("unexpected failure: %s", res.Message)
	}
	if len(res.Items) != 4 {
		t.Fatalf("got %d items, want 4", len(res.Items))
	}

	got := Normalize(res.Items)
	want := []map[string]any{
		{"expr": "2 + 3", "result": float64(5)},
		{"expr": "x", "result": float64(1)},
		{"raw": "plain words"},
		{"raw": "42"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v\nwant %#v", got, want)
	}
}

func TestParseModelOutput_CodeFence(t *testing.T) {
	inputs := []string{
		"```json\n[{\"expr\": \"1+1\", \"result\": 2}]\n```",
		"```\n[{\"expr\": \"1+1\", \"result\": 2}]\n```",
		"  [{\"expr\": \"1+1\", \"result\": 2}]  ",
	}
	for _, in := range inputs {
		res := ParseModelOutput(in)
		if len(res.Items) != 1 {
			t.Fatalf("%q: got %d items, want 1", in, len(res.Items))
		}
		rec, ok := res.Items[0].RecordValue()
		if !ok || rec["expr"] != "1+1" {
			t.Errorf("%q: unexpected item %v", in, res.Items[0])
		}
	}
}

func TestParseModelOutput_ErrorObject(t *testing.T) {
	res := ParseModelOutput(`{"error": "Image is blank"}`)
	if !res.Failed {
		t.Fatal("expected failure signal")
	}
	if res.Message != "Image is blank" {
		t.Errorf("Message: got %q", res.Message)
	}

	res = ParseModelOutput(`{"error": {"code": 7}}`)
	if !res.Failed || res.Message != "map[code:7]" {
		t.Errorf("non-string error should be stringified, got %+v", res)
	}
}

func TestParseModelOutput_SingleObject(t *testing.T) {
	res := ParseModelOutput(`{"expr": "y", "result": 3, "assign": true}`)
	if res.Failed || len(res.Items) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := res.Items[0].RecordValue(); !ok {
		t.Error("a bare object should become a record")
	}
}

func TestParseModelOutput_Empty(t *testing.T) {
	for _, in := range []string{"", "[]", "```json\n[]\n```", "null"} {
		res := ParseModelOutput(in)
		if res.Failed || len(res.Items) != 0 {
			t.Errorf("%q: want no items, got %+v", in, res)
		}
	}
}

func TestParseModelOutput_Prose(t *testing.T) {
	res := ParseModelOutput("The answer is 4.\n\n{\"expr\": \"2+2\", \"result\": 4}\n")
	if len(res.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(res.Items))
	}

	got := Normalize(res.Items)
	if got[0]["raw"] != "The answer is 4." {
		t.Errorf("line 0: %v", got[0])
	}
	if got[1]["expr"] != "2+2" {
		t.Errorf("line 1 should parse as a record: %v", got[1])
	}
}
