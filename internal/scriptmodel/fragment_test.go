package scriptmodel

import "testing"

func TestSplitTwoFragmentsAcrossRestart(t *testing.T) {
	code := "Test1();\nTest2();\n\n<<<RESTART FROM HERE>>>\nTest3();\nTest4();\n\nTest5();\n\n"
	got := Split("test1.js", code)

	want := []Fragment{
		{FileName: "test1.js", StartLine: 1, Code: "Test1();\nTest2();\n\n"},
		{FileName: "test1.js", StartLine: 4, Code: "\nTest3();\nTest4();\n\nTest5();\n\n"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSplitEmptyInputYieldsNoFragments(t *testing.T) {
	if got := Split("empty.js", ""); len(got) != 0 {
		t.Errorf("got %d fragments, want 0: %+v", len(got), got)
	}
}

func TestSplitConsecutiveDelimitersYieldEmptyFragment(t *testing.T) {
	code := "Test1();<<<RESTART FROM HERE>>><<<RESTART FROM HERE>>>Test2();"
	got := Split("consec.js", code)
	want := []Fragment{
		{FileName: "consec.js", StartLine: 1, Code: "Test1();"},
		{FileName: "consec.js", StartLine: 1, Code: ""},
		{FileName: "consec.js", StartLine: 1, Code: "Test2();"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSplitNoDelimiterYieldsSingleFragment(t *testing.T) {
	got := Split("f.js", "Test1();\nTest2();")
	if len(got) != 1 {
		t.Fatalf("got %d fragments, want 1: %+v", len(got), got)
	}
	if got[0].StartLine != 1 || got[0].Code != "Test1();\nTest2();" {
		t.Errorf("got %+v", got[0])
	}
}
