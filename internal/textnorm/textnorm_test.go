package textnorm

import (
	"strings"
	"testing"
)

func TestNormalize_WidthAndCaseInsensitive(t *testing.T) {
	if got, want := Normalize("Ｈｅｌｌｏ "), Normalize("hello"); got != want {
		t.Fatalf("期望全角/大小写不敏感：%q != %q", got, want)
	}
	if got := Normalize("Hello, World!"); got != "helloworld" {
		t.Fatalf("期望 helloworld，实际 %q", got)
	}
	if got := Normalize("「サクラノ詩」 －櫻の森の上を舞う－"); got != "サクラノ詩櫻の森の上を舞う" {
		t.Fatalf("CJK 标点未去除：%q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"Ｈｅｌｌｏ Ｗｏｒｌｄ",
		"ﾊﾟﾗﾀﾞｲｽ",
		"e ́clair",
		"Fate/stay night [Réalta Nua]",
		"㍿ ＡＢＣ…",
		"  サクラノ刻 －櫻の森の下を歩む－  ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize 不幂等：in=%q once=%q twice=%q", in, once, twice)
		}
	}
}

func TestClean(t *testing.T) {
	if Clean("") != nil || Clean("   ") != nil {
		t.Fatalf("空输入应返回 nil")
	}
	if Clean("[url=https://x]   [/url]") != nil {
		t.Fatalf("清理后为空应返回 nil")
	}

	got := Clean("<p>Tom &amp; Jerry</p><br/>[b]bold[/b] &lt;3 [From Getchu]")
	if got == nil {
		t.Fatalf("不期望 nil")
	}
	if *got != "Tom & Jerry\nbold <3" {
		t.Fatalf("清理结果不符合预期：%q", *got)
	}
}

func TestLooksJapanese_StrictBoundary(t *testing.T) {
	// 20 个字符中 1 个假名 = 恰好 5%：不算日文。
	exact := "あ" + strings.Repeat("x", 19)
	if LooksJapanese(exact) {
		t.Fatalf("恰好 5%% 假名不应视为日文")
	}
	above := "あい" + strings.Repeat("x", 18)
	if !LooksJapanese(above) {
		t.Fatalf("10%% 假名应视为日文")
	}
	if LooksJapanese("") {
		t.Fatalf("空串不应视为日文")
	}
	if LooksJapanese("樱之诗 在樱花之森上飞舞") {
		t.Fatalf("纯汉字不应视为日文")
	}
}

func TestLooksEnglish_StrictBoundary(t *testing.T) {
	// 20 个字符中 16 个 ASCII 字母 = 恰好 80%：不算英文。
	exact := strings.Repeat("a", 16) + "1234"
	if LooksEnglish(exact) {
		t.Fatalf("恰好 80%% 不应视为英文")
	}
	above := strings.Repeat("a", 17) + "123"
	if !LooksEnglish(above) {
		t.Fatalf("85%% 应视为英文")
	}
	if !LooksEnglish("A story about cherry blossoms, art, and youth.") {
		t.Fatalf("英文句子应视为英文")
	}
	if LooksEnglish("桜の森の上を舞う") {
		t.Fatalf("日文不应视为英文")
	}
}
