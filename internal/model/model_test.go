package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

const testMonth Period = "2026-10"

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC))
	if got != "2026-01" {
		t.Errorf("MonthOf = %q, want %q", got, "2026-01")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"ETERNITY", false},
		{"2026-10", false},
		{"2026-10-17", false},
		{"2026-13", true},
		{"eternity", true},
		{"", true},
	}
	for _, tt := range tests {
		_, err := ParsePeriod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePeriod(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestValueJSON(t *testing.T) {
	tests := []struct {
		in   string
		want Value
	}{
		{`null`, Null},
		{`"二級"`, Code("二級")},
		{`12.5`, Number(12.5)},
		{`0`, Number(0)},
		{`true`, Bool(true)},
	}
	for _, tt := range tests {
		var v Value
		if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if !v.Equal(tt.want) {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, v, tt.want)
		}
		out, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %v: %v", v, err)
		}
		if string(out) != tt.in {
			t.Errorf("marshal = %s, want %s", out, tt.in)
		}
	}
}

func TestPersonRejectsUnknownAttribute(t *testing.T) {
	var p Person
	err := json.Unmarshal([]byte(`{"身長": {"ETERNITY": 170}}`), &p)
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("err = %v, want ErrUnknownAttribute", err)
	}

	if _, err := NewPerson(map[string]PeriodValues{"所得": {testMonth: Number(1)}}); err != nil {
		t.Fatalf("NewPerson: %v", err)
	}
}

func TestNewHousehold(t *testing.T) {
	h := NewHousehold(testMonth)

	if err := h.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	values, present, err := h.Attribute(SelfName, AttrBirthDate)
	if err != nil || !present {
		t.Fatalf("attribute: present=%v err=%v", present, err)
	}
	if !values[Eternity].IsNull() {
		t.Errorf("birth date = %v, want null", values[Eternity])
	}
	u := h.Units[DefaultUnit]
	if len(u.Guardians) != 1 || u.Guardians[0] != SelfName {
		t.Errorf("guardians = %v", u.Guardians)
	}
	for _, b := range Benefits() {
		if v, ok := u.Benefits[b][testMonth]; !ok || !v.IsNull() {
			t.Errorf("benefit %s = %v, want pending null", b, v)
		}
	}
}

func TestHouseholdJSONRoundTrip(t *testing.T) {
	h := NewHousehold(testMonth)
	if _, err := h.SetChildren(1, testMonth); err != nil {
		t.Fatalf("set children: %v", err)
	}

	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"世帯員"`, `"世帯"`, `"保護者一覧":["あなた"]`, `"児童一覧":["子ども1"]`, `"ETERNITY":"無"`, `"児童手当":{"2026-10":null}`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("json missing %s: %s", want, data)
		}
	}

	var back Household
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(h) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, h)
	}
}

func TestBenefitUnitRejectsUnknownBenefit(t *testing.T) {
	var u BenefitUnit
	err := json.Unmarshal([]byte(`{"保護者一覧": [], "宝くじ": {"2026-10": null}}`), &u)
	if !errors.Is(err, ErrUnknownBenefit) {
		t.Fatalf("err = %v, want ErrUnknownBenefit", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	h := NewHousehold(testMonth)
	c := h.Clone()

	c.Members[SelfName].Set(AttrIncome, testMonth, Number(100))
	c.Units[DefaultUnit].Guardians[0] = "someone"

	if v := h.Members[SelfName][AttrIncome][testMonth]; !v.Equal(Number(0)) {
		t.Errorf("original income mutated: %v", v)
	}
	if h.Units[DefaultUnit].Guardians[0] != SelfName {
		t.Error("original guardians mutated")
	}
}

func TestValidateDanglingMember(t *testing.T) {
	h := NewHousehold(testMonth)
	h.Units[DefaultUnit].Children = []string{"子ども9"}

	if err := h.Validate(); !errors.Is(err, ErrDanglingMember) {
		t.Fatalf("err = %v, want ErrDanglingMember", err)
	}
}

func TestAttributeUnknownMember(t *testing.T) {
	h := NewHousehold(testMonth)
	if _, _, err := h.Attribute("子ども1", AttrIncome); !errors.Is(err, ErrUnknownMember) {
		t.Fatalf("err = %v, want ErrUnknownMember", err)
	}
}

func TestYourselfValidate(t *testing.T) {
	date := "1990-04-01"
	bad := "1990/04/01"

	if err := (Yourself{BirthDate: &date, ChildCount: 2}).Validate(5); err != nil {
		t.Fatalf("valid profile: %v", err)
	}
	if err := (Yourself{BirthDate: &bad}).Validate(5); err == nil {
		t.Error("expected error for malformed birth date")
	}
	if err := (Yourself{ChildCount: 6}).Validate(5); !errors.Is(err, ErrInvalidChildCount) {
		t.Errorf("err = %v, want ErrInvalidChildCount", err)
	}
}
