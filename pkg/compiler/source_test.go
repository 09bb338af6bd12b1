package compiler

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitLines(t *testing.T) {
	src := "let $x = $1   // one\n\n   // only a comment\n\tadd $x\r\nhalt"
	got := SplitLines(src)
	want := []SourceLine{
		{Num: 1, Content: "let $x = $1"},
		{Num: 4, Content: "add $x"},
		{Num: 5, Content: "halt"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestReadLines(t *testing.T) {
	got, err := ReadLines(strings.NewReader("halt\n\nclear\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []SourceLine{{Num: 1, Content: "halt"}, {Num: 3, Content: "clear"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSplitLinesEmpty(t *testing.T) {
	if got := SplitLines(""); len(got) != 0 {
		t.Errorf("expected no lines, got %+v", got)
	}
}
