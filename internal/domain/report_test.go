package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestFetchReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := FetchReport{
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Metadata:   EmptyMetadata(),
		Sources: []SourceResult{
			{Provider: SourceBangumi, Status: SourceStatusFailed},
			{Provider: "zzz", Status: SourceStatusOK},
			{Provider: SourceVNDB, Status: SourceStatusOK},
			{Provider: SourceDLsite, Status: SourceStatusAbsent},
			{Provider: "aaa", Status: SourceStatusSkipped},
		},
	}

	r.Finalize()

	got := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		got = append(got, s.Provider)
	}
	want := []string{SourceVNDB, SourceDLsite, SourceBangumi, "aaa", "zzz"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources 排序不符合契约：%v", got)
		}
	}
	if r.Summary.OK != 2 || r.Summary.Absent != 1 || r.Summary.Failed != 1 || r.Summary.Skipped != 1 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
}

func TestEmptyMetadata_JSONUsesEmptyArraysAndNulls(t *testing.T) {
	b, err := json.Marshal(EmptyMetadata())
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	for _, want := range []string{
		`"name":""`,
		`"introduction":null`,
		`"released":null`,
		`"alias":[]`,
		`"tag":[]`,
		`"banner":null`,
		`"screenshots":[]`,
		`"website":""`,
		`"companies":[]`,
	} {
		if !bytes.Contains(b, []byte(want)) {
			t.Fatalf("输出缺少 %s：%s", want, string(b))
		}
	}
}

func TestSeed_NormalizeAndEmpty(t *testing.T) {
	s := Seed{VNDBID: " 17 ", DLsiteCode: "rj012345", CommunityURL: "ftp://x"}.Normalize()
	if s.VNDBID != "v17" {
		t.Fatalf("期望 vndb=v17，实际 %q", s.VNDBID)
	}
	if s.DLsiteCode != "RJ012345" {
		t.Fatalf("期望 code=RJ012345，实际 %q", s.DLsiteCode)
	}
	if s.CommunityURL != "" {
		t.Fatalf("非 http(s) URL 应被丢弃，实际 %q", s.CommunityURL)
	}

	if !(Seed{}).Empty() {
		t.Fatalf("空 Seed 应为 Empty")
	}
	if !(Seed{VNDBID: "abc", DLsiteCode: "BJ01"}).Empty() {
		t.Fatalf("全部非法的 Seed 应为 Empty")
	}
	if err := (Seed{}).Validate(); err != ErrInvalidSeed {
		t.Fatalf("期望 ErrInvalidSeed，实际 %v", err)
	}
	if err := (Seed{CommunityURL: "https://example.test/vn/1"}).Validate(); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
}

func TestParseStorefrontCode(t *testing.T) {
	cases := map[string]string{
		"RJ012345":  "RJ012345",
		" vj099999": "VJ099999",
		"BJ012345":  "",
		"RJ":        "",
		"RJ12a":     "",
	}
	for in, want := range cases {
		got, ok := ParseStorefrontCode(in)
		if string(got) != want || ok != (want != "") {
			t.Fatalf("ParseStorefrontCode(%q)=%q,%v，期望 %q", in, got, ok, want)
		}
	}
}
