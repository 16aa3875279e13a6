package filter

// DefaultRules returns the Chicago Cubs rule set
func DefaultRules() Rules {
	return Rules{
		Exclude: []string{
			"White Sox", "Bears", "Blackhawks", "Bulls",
			"Notre Dame", "Northwestern",
		},
		Strong: []string{
			"Chicago Cubs", "Wrigley Field", "Clark and Addison", "North Siders", "North Sider",
			// front office and coaches
			"Craig Counsell", "Jed Hoyer", "Carter Hawkins", "Tom Ricketts",
			// players
			"Nico Hoerner", "Dansby Swanson", "Seiya Suzuki", "Ian Happ", "Christopher Morel",
			"Shota Imanaga", "Justin Steele", "Kyle Hendricks", "Cody Bellinger",
			"Pete Crow-Armstrong", "Miguel Amaya", "Jameson Taillon", "Michael Busch",
			"Kyle Tucker", "Matthew Boyd", "Javier Assad", "Porter Hodge",
		},
		Team: []string{"Cubs", "Cubbies", "Wrigley"},
		Context: []string{
			"MLB", "baseball", "NL Central", "National League", "spring training",
			"game", "games", "win", "wins", "won", "loss", "loses", "lost", "beat", "beats",
			"sweep", "clinch", "clinches", "series", "doubleheader", "walk-off", "extra innings",
			"inning", "innings", "pitcher", "pitchers", "pitching", "pitch", "bullpen", "closer",
			"starter", "rotation", "lineup", "roster", "manager", "trade", "trade deadline",
			"homer", "homers", "home run", "home runs", "RBI", "batting", "hitter", "strikeout",
			"strikeouts", "shortstop", "outfielder", "catcher", "infielder", "injured list",
			"playoffs", "postseason", "wild card", "standings", "box score", "recap",
		},
		TrustedDomains: []string{
			"mlb.com/cubs",
			"espn.com/mlb/team/_/name/chc",
			"nbcsportschicago.com",
			"bleachernation.com",
			"bleedcubbieblue.com",
			"cubsinsider.com",
			"yahoo.com/mlb/teams/chc",
			"cbssports.com/feeds/team/mlb/chc",
		},
	}
}
