package model

import "testing"

func TestAnswerEntryRoundTrip(t *testing.T) {
	encoded := EncodeAnswerEntry(SkillReading, "the mitochondria")
	entry, ok := DecodeAnswerEntry(encoded)
	if !ok {
		t.Fatalf("DecodeAnswerEntry(%q) rejected a freshly encoded value", encoded)
	}
	if entry.Skill != SkillReading || entry.Answer != "the mitochondria" {
		t.Fatalf("decoded %+v, want skill reading with the original answer", entry)
	}
}

func TestAnswerEntryAnswerMayContainSeparator(t *testing.T) {
	entry, ok := DecodeAnswerEntry(EncodeAnswerEntry(SkillListening, "a|b"))
	if !ok || entry.Answer != "a|b" {
		t.Fatalf("decoded %+v ok=%v, want answer %q preserved", entry, ok, "a|b")
	}
}

func TestDecodeAnswerEntryRejectsMalformed(t *testing.T) {
	for _, v := range []string{"", "just an answer", "telepathy|A"} {
		if _, ok := DecodeAnswerEntry(v); ok {
			t.Errorf("DecodeAnswerEntry(%q) = ok, want rejection", v)
		}
	}
}
