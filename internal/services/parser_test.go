package services

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseCommand_Keywords(t *testing.T) {
	cases := []struct {
		in     string
		state  State
		intent Intent
		args   string
	}{
		{"add", Idle{}, IntentAdd, ""},
		{"ADD", Idle{}, IntentAdd, ""},
		{"新增", Idle{}, IntentAdd, ""},
		{"  查詢 ", Idle{}, IntentQuery, ""},
		{"delete 1 3", Idle{}, IntentDelete, "1 3"},
		{"刪除１　３", Idle{}, IntentDelete, "1 3"},
		{"add milk, 2030-01-01", Idle{}, IntentAdd, "milk, 2030-01-01"},
		{"新增牛奶，2030-01-01", Idle{}, IntentAdd, "牛奶,2030-01-01"},
		{"recipe egg, tomato", Idle{}, IntentRecipe, "egg, tomato"},
		{"modify", Idle{}, IntentModify, ""},
		{"取消", AwaitingDeleteIDs{}, IntentCancel, ""},
		// Bare keywords win over pending input.
		{"query", AwaitingAddInput{}, IntentQuery, ""},
		{"help", AwaitingModifyValue{ID: 1, Field: FieldName}, IntentHelp, ""},
	}
	for _, c := range cases {
		got := ParseCommand(c.in, c.state)
		if got.Kind != CommandKeyword || got.Intent != c.intent || got.Args != c.args {
			t.Errorf("ParseCommand(%q) = %+v, want keyword %s args %q", c.in, got, c.intent, c.args)
		}
	}
}

func TestParseCommand_InputAndUnknown(t *testing.T) {
	if got := ParseCommand("what's for dinner?", Idle{}); got.Kind != CommandUnknown || got.Args != "what's for dinner?" {
		t.Fatalf("idle free text = %+v", got)
	}
	if got := ParseCommand("what's for dinner?", nil); got.Kind != CommandUnknown {
		t.Fatalf("nil state = %+v", got)
	}
	if got := ParseCommand(" 1 2 ", AwaitingDeleteIDs{}); got.Kind != CommandInput || got.Args != "1 2" {
		t.Fatalf("pending input = %+v", got)
	}
	// "adder" is not the "add" keyword.
	if got := ParseCommand("adder, 2030-01-01", AwaitingAddInput{}); got.Kind != CommandInput {
		t.Fatalf("prefix of english keyword matched: %+v", got)
	}
}

func TestParseCommand_KeywordLedInputMidFlow(t *testing.T) {
	cases := []struct {
		in    string
		state State
	}{
		{"list of spices, 2030-01-01", AwaitingAddInput{}},
		{"add-on sauce 2030-01-01", AwaitingAddInput{}},
		{"新增牛奶，2030-01-01", AwaitingAddInput{}},
		{"Help tea", AwaitingModifyValue{ID: 1, Field: FieldName}},
		{"recipe book basil, thyme", AwaitingRecipeIngredients{}},
		{"delete 2", AwaitingDeleteIDs{}},
	}
	for _, c := range cases {
		got := ParseCommand(c.in, c.state)
		if got.Kind != CommandInput || got.Args != Normalize(c.in) {
			t.Errorf("ParseCommand(%q, %s) = %+v, want input", c.in, c.state.Name(), got)
		}
	}
}

func TestParseAddEntries(t *testing.T) {
	got := ParseAddEntries("milk, 2030-01-01; olive oil 2030-02-03\neggs,2030-03-04；tofu、2030-05-06\n\nbasil")
	want := []AddEntry{
		{Raw: "milk, 2030-01-01", Name: "milk", Date: "2030-01-01"},
		{Raw: "olive oil 2030-02-03", Name: "olive oil", Date: "2030-02-03"},
		{Raw: "eggs,2030-03-04", Name: "eggs", Date: "2030-03-04"},
		{Raw: "tofu、2030-05-06", Name: "tofu", Date: "2030-05-06"},
		{Raw: "basil", Name: "basil"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseAddEntries:\n got %+v\nwant %+v", got, want)
	}

	if got := ParseAddEntries("green tea leaves"); len(got) != 1 || got[0].Name != "green tea leaves" || got[0].Date != "" {
		t.Fatalf("multi-word name without date = %+v", got)
	}
	if got := ParseAddEntries(" ; \n "); len(got) != 0 {
		t.Fatalf("blank entries = %+v", got)
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("3 1, 3  ２")
	if err != nil || !reflect.DeepEqual(ids, []int{3, 1, 2}) {
		t.Fatalf("ParseIDs = %v, %v", ids, err)
	}

	for _, bad := range []string{"", "1 x 2", "0", "-4", "1.5", "+2", "1 +3", "0x1F"} {
		_, err := ParseIDs(bad)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("ParseIDs(%q) err = %v", bad, err)
		}
	}

	_, err = ParseIDs("1 two")
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Value != "two" {
		t.Fatalf("bad token not reported: %v", err)
	}
}

func TestParseIDAndField(t *testing.T) {
	if n, err := ParseID(" ７ "); err != nil || n != 7 {
		t.Fatalf("ParseID = %d, %v", n, err)
	}
	if _, err := ParseID("1 2"); err == nil {
		t.Fatal("ParseID accepted two ids")
	}
	if _, err := ParseID("+7"); !errors.Is(err, ErrValidation) {
		t.Fatalf("ParseID accepted a signed id: %v", err)
	}

	for in, want := range map[string]Field{"name": FieldName, "Name": FieldName, "名稱": FieldName, "1": FieldName, "date": FieldDate, "日期": FieldDate, "2": FieldDate} {
		if f, err := ParseField(in); err != nil || f != want {
			t.Errorf("ParseField(%q) = %q, %v", in, f, err)
		}
	}
	if _, err := ParseField("colour"); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown field err = %v", err)
	}
}
