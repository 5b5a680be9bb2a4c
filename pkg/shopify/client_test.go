package shopify

import "testing"

func TestClient_URL(t *testing.T) {
	c := NewClient("")
	creds := Credentials{Domain: "demo.myshopify.com"}

	got := c.url(creds, "products.json")
	want := "https://demo.myshopify.com/admin/api/" + DefaultAPIVersion + "/products.json"
	if got != want {
		t.Errorf("url() = %s, want %s", got, want)
	}

	c = NewClient("2024-10")
	if got := c.url(creds, "locations.json"); got != "https://demo.myshopify.com/admin/api/2024-10/locations.json" {
		t.Errorf("url() = %s", got)
	}
}

func TestClient_LimiterPerDomain(t *testing.T) {
	c := NewClient("")

	a1 := c.limiter("a.myshopify.com")
	a2 := c.limiter("a.myshopify.com")
	b := c.limiter("b.myshopify.com")

	if a1 != a2 {
		t.Error("同域名应复用同一个限速器")
	}
	if a1 == b {
		t.Error("不同域名不应共享限速器")
	}
}
