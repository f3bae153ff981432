package embedding

import (
	"reflect"
	"testing"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("hello world", 10)
	if len(ids) != 10 {
		t.Errorf("len(ids)=%d", len(ids))
	}
	if ids[0] != tokenCLS {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != tokenSEP || attn[3] != 1 || attn[4] != 0 {
		t.Errorf("unexpected layout: ids=%v attn=%v", ids, attn)
	}
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, _, _ := tok.Tokenize("a b c d e f g h", 4)
	if len(ids) != 4 || ids[3] != tokenSEP {
		t.Errorf("ids=%v", ids)
	}
}

func TestWords(t *testing.T) {
	got := Words("  Hello, World!\tGo-lang  ")
	want := []string{"hello", "world", "go", "lang"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Words = %v, want %v", got, want)
	}
	if len(Words("")) != 0 {
		t.Error("empty string should have no words")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("abd") {
		t.Error("different inputs should hash differently")
	}
}
