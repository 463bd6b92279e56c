package templates

import "testing"

func TestRendererRender(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("greet", "Olá {{.Name}}", map[string]string{"Name": "Ana"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Olá Ana" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := r.Render("bad", "Olá {{.Missing}}", map[string]string{"Name": "x"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := r.Render("empty", "", nil); err == nil {
		t.Fatalf("expected error for empty template")
	}
}

func TestRendererFuncs(t *testing.T) {
	r := NewRenderer()
	out, err := r.Render("price", "Total: {{brl .Cents}}", map[string]int64{"Cents": 123456})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Total: R$ 1.234,56" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestFormatBRL(t *testing.T) {
	cases := map[int64]string{
		0:       "R$ 0,00",
		8000:    "R$ 80,00",
		99:      "R$ 0,99",
		1000000: "R$ 10.000,00",
		-1250:   "-R$ 12,50",
	}
	for cents, want := range cases {
		if got := FormatBRL(cents); got != want {
			t.Errorf("FormatBRL(%d) = %q, want %q", cents, got, want)
		}
	}
}
