package report

type Integration struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Icon   string `json:"icon"`
	Logo   string `json:"logo"`
	Count  int    `json:"count"`
}

var integrationCatalog = []Integration{
	{Name: "Email", Type: "email", Icon: "📧", Logo: "https://ssl.gstatic.com/ui/v1/icons/mail/rfr/gmail.ico"},
	{Name: "GitHub Issues", Type: "github", Icon: "🐙", Logo: "https://github.githubassets.com/images/modules/logos_page/GitHub-Mark.png"},
	{Name: "Discord", Type: "discord", Icon: "💬", Logo: "https://discord.com/assets/f9bb9c4af2b9c32a2c5ee0014661546d.png"},
	{Name: "Cloudflare", Type: "cloudflare", Icon: "☁️", Logo: "https://www.cloudflare.com/favicon.ico"},
	{Name: "LinkedIn", Type: "linkedin", Icon: "💼", Logo: "https://static.licdn.com/sc/h/al2o9zrvru7aqj8e1x2rzsrca"},
}

// Integrations fills the fixed catalog with per-source counts. Sources
// outside the catalog are not listed and do not count toward the total.
func Integrations(countsBySource map[string]int) ([]Integration, int) {
	out := make([]Integration, len(integrationCatalog))
	total := 0
	for i, in := range integrationCatalog {
		in.Status = "connected"
		in.Count = countsBySource[in.Type]
		total += in.Count
		out[i] = in
	}
	return out, total
}
