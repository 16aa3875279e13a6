package config

// DefaultTeamName is the page title used when the config doesn't set one
const DefaultTeamName = "Chicago Cubs — MLB Feed"

// DefaultQuickLinks returns quick link buttons, left to right
func DefaultQuickLinks() []Link {
	return []Link{
		{Title: "Cubs — Official", URL: "https://www.mlb.com/cubs"},
		{Title: "Schedule", URL: "https://www.mlb.com/cubs/schedule"},
		{Title: "Roster", URL: "https://www.mlb.com/cubs/roster"},
		{Title: "Standings", URL: "https://www.mlb.com/standings"},
		{Title: "ESPN", URL: "https://www.espn.com/mlb/team/_/name/chc/chicago-cubs"},
		{Title: "CBS Sports", URL: "https://www.cbssports.com/mlb/teams/CHC/chicago-cubs/"},
		{Title: "Yahoo Sports", URL: "https://sports.yahoo.com/mlb/teams/chicago/"},
		{Title: "Bleed Cubbie Blue", URL: "https://www.bleedcubbieblue.com/"},
		{Title: "Cubs Insider", URL: "https://www.cubsinsider.com/"},
		{Title: "Bleacher Nation — Cubs", URL: "https://www.bleachernation.com/chicago-cubs-news-rumors/"},
		{Title: "Reddit — r/CHICubs", URL: "https://www.reddit.com/r/CHICubs/"},
	}
}

// DefaultSources returns the built-in feed list
func DefaultSources() []SourceConfig {
	gnews := func(q string) string {
		return "https://news.google.com/rss/search?q=" + q + "&hl=en-US&gl=US&ceid=US:en"
	}
	return []SourceConfig{
		// broad news
		{Name: "Google News — Chicago Cubs", URL: gnews("%22Chicago+Cubs%22")},
		{Name: "Bing News — Chicago Cubs", URL: "https://www.bing.com/news/search?q=%22Chicago+Cubs%22&format=rss"},

		// site queries through google news
		{Name: "Google — MLB.com (Cubs)", URL: gnews("site:mlb.com%2Fcubs+%22Chicago+Cubs%22")},
		{Name: "Google — ESPN (Cubs)", URL: gnews("site:espn.com+%22Chicago+Cubs%22")},
		{Name: "Google — Yahoo Sports (Cubs)", URL: gnews("site:sports.yahoo.com+%22Cubs%22")},
		{Name: "Google — CBS Sports (Cubs)", URL: gnews("site:cbssports.com+%22Cubs%22")},
		{Name: "Google — The Athletic (Cubs)", URL: gnews("site:theathletic.com+%22Cubs%22")},
		{Name: "Google — Chicago Tribune (Cubs)", URL: gnews("site:chicagotribune.com+%22Cubs%22")},
		{Name: "Google — Sun-Times (Cubs)", URL: gnews("site:chicago.suntimes.com+%22Cubs%22")},
		{Name: "Google — Bleacher Nation (Cubs)", URL: gnews("site:bleachernation.com+%22Cubs%22")},
		{Name: "Google — Cubs Insider", URL: gnews("site:cubsinsider.com+%22Cubs%22")},
		{Name: "Google — Bleed Cubbie Blue", URL: gnews("site:bleedcubbieblue.com+%22Cubs%22")},

		// direct feeds
		{Name: "Bleed Cubbie Blue (RSS)", URL: "https://www.bleedcubbieblue.com/rss/index.xml"},
		{Name: "Cubs Insider (RSS)", URL: "https://www.cubsinsider.com/feed/"},
		{Name: "Reddit — r/CHICubs (RSS)", URL: "https://www.reddit.com/r/CHICubs/.rss"},

		// league-wide, fills slow news days
		{Name: "MLB — League News", URL: "https://www.mlb.com/feeds/news/rss.xml"},
	}
}
