package hostlib

import (
	"bytes"
	"path/filepath"
	"testing"

	"filagree/value"
)

func sysTable(t *testing.T, stdout *bytes.Buffer) map[string]*value.Value {
	t.Helper()
	resolve := NewResolver(stdout)
	sys, ok := resolve("sys")
	if !ok || sys.Kind != value.MapKind {
		t.Fatalf("expected a sys module, got %+v ok=%v", sys, ok)
	}
	return sys.Table
}

func TestFindHostVarOnlyRecognizesSys(t *testing.T) {
	resolve := NewResolver(&bytes.Buffer{})
	if _, ok := resolve("nope"); ok {
		t.Fatal("expected an unrecognized module name to resolve to nothing")
	}
	if _, ok := resolve("sys"); !ok {
		t.Fatal("expected sys to resolve")
	}
}

func TestSysPrintWritesStringifiedArgLine(t *testing.T) {
	var out bytes.Buffer
	sys := sysTable(t, &out)
	_, err := sys["print"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.IntKind, Int: 7},
	}})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	if out.String() != "7\n" {
		t.Fatalf("expected \"7\\n\", got %q", out.String())
	}
}

func TestSysWriteThenReadRoundTripsThroughAFile(t *testing.T) {
	var out bytes.Buffer
	sys := sysTable(t, &out)
	path := filepath.Join(t.TempDir(), "out.bin")

	_, err := sys["write"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.StringKind, Str: []byte("hello")},
		{Kind: value.StringKind, Str: []byte(path)},
	}})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := sys["read"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.StringKind, Str: []byte(path)},
	}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Kind != value.StringKind {
		t.Fatalf("expected a string, got %+v", got)
	}

	deser, err := sys["deserialize"].Host(&value.CallArgs{Args: []*value.Value{got}})
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if deser.Kind != value.StringKind || string(deser.Str) != "hello" {
		t.Fatalf("expected round-tripped \"hello\", got %+v", deser)
	}
}

func TestSysAtoiParsesLeadingSignedInteger(t *testing.T) {
	var out bytes.Buffer
	sys := sysTable(t, &out)
	result, err := sys["atoi"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.StringKind, Str: []byte("-123abc")},
	}})
	if err != nil {
		t.Fatalf("atoi: %v", err)
	}
	if result.Kind != value.ListKind || len(result.Items) != 2 {
		t.Fatalf("expected a 2-tuple, got %+v", result)
	}
	if result.Items[0].Int != -123 {
		t.Fatalf("expected parsed value -123, got %d", result.Items[0].Int)
	}
	if result.Items[1].Int != 4 {
		t.Fatalf("expected 4 characters consumed, got %d", result.Items[1].Int)
	}
}

func TestSysSortOrdersIntsAscending(t *testing.T) {
	var out bytes.Buffer
	sys := sysTable(t, &out)
	lst := &value.Value{Kind: value.ListKind, Items: []*value.Value{
		{Kind: value.IntKind, Int: 3},
		{Kind: value.IntKind, Int: 1},
		{Kind: value.IntKind, Int: 2},
	}}
	result, err := sys["sort"].Host(&value.CallArgs{Args: []*value.Value{lst}})
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	want := []int32{1, 2, 3}
	for i, w := range want {
		if result.Items[i].Int != w {
			t.Fatalf("expected sorted %v, got %v", want, result.Items)
		}
	}
}

func TestSysFindLocatesSubstringAndListElement(t *testing.T) {
	var out bytes.Buffer
	sys := sysTable(t, &out)

	strResult, err := sys["find"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.StringKind, Str: []byte("hello world")},
		{Kind: value.StringKind, Str: []byte("world")},
	}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if strResult.Int != 6 {
		t.Fatalf("expected index 6, got %d", strResult.Int)
	}

	missing, err := sys["find"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.StringKind, Str: []byte("hello")},
		{Kind: value.StringKind, Str: []byte("zzz")},
	}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if missing.Int != -1 {
		t.Fatalf("expected -1 for a missing needle, got %d", missing.Int)
	}

	listResult, err := sys["find"].Host(&value.CallArgs{Args: []*value.Value{
		{Kind: value.ListKind, Items: []*value.Value{
			{Kind: value.IntKind, Int: 4},
			{Kind: value.IntKind, Int: 7},
		}},
		{Kind: value.IntKind, Int: 7},
	}})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if listResult.Int != 1 {
		t.Fatalf("expected list index 1, got %d", listResult.Int)
	}
}
