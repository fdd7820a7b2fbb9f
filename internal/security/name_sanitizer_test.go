package security

import "testing"

func TestNameSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewNameSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "milk",
			want:  "milk",
		},
		{
			name:  "前後の空白を除去する",
			input: "  eggs \n",
			want:  "eggs",
		},
		{
			name:  "タグを除去してテキストを残す",
			input: "<b>bread</b>",
			want:  "bread",
		},
		{
			name:  "scriptタグは内容ごと除去する",
			input: "apples<script>alert(1)</script>",
			want:  "apples",
		},
		{
			name:  "アンパサンドとアポストロフィを保持する",
			input: "Ben & Jerry's",
			want:  "Ben & Jerry's",
		},
		{
			name:  "日本語を保持する",
			input: "牛乳",
			want:  "牛乳",
		},
		{
			name:  "タグのみの入力は空になる",
			input: "<img src=x onerror=alert(1)>",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewNameSanitizer()

	inputs := []string{"milk", "<i>tea</i>", "Ben & Jerry's", "  rice  "}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
