package transform

// genreCategories groups raw chart genre tags into broad categories.
var genreCategories = map[string][]string{
	"Rock/Metal": {
		"alt-rock", "alternative", "black-metal", "death-metal", "emo", "grindcore",
		"hard-rock", "hardcore", "heavy-metal", "metal", "metalcore", "psych-rock",
		"punk-rock", "punk", "rock-n-roll", "rock", "grunge", "j-rock", "goth",
		"industrial", "rockabilly", "indie",
	},
	"Pop": {
		"pop", "indie-pop", "power-pop", "k-pop", "j-pop", "mandopop", "cantopop",
		"pop-film", "j-idol", "synth-pop",
	},
	"Electronic/Dance": {
		"edm", "electro", "electronic", "house", "deep-house", "progressive-house",
		"techno", "trance", "dubstep", "drum-and-bass", "dub", "garage", "idm",
		"club", "dance", "minimal-techno", "detroit-techno", "chicago-house",
		"breakbeat", "hardstyle", "j-dance", "trip-hop",
	},
	"Urban": {
		"hip-hop", "r-n-b", "dancehall", "reggaeton", "reggae",
	},
	"Latino": {
		"brazil", "salsa", "samba", "spanish", "pagode", "sertanejo",
		"mpb", "latin", "latino",
	},
	"Global Sounds": {
		"indian", "iranian", "malay", "turkish", "tango", "afrobeat", "french",
		"german", "british", "swedish",
	},
	"Jazz and Soul": {
		"blues", "bluegrass", "funk", "gospel", "jazz", "soul", "groove", "disco", "ska",
	},
	"Varied Themes": {
		"children", "disney", "forro", "kids", "party", "romance", "show-tunes",
		"comedy", "anime",
	},
	"Instrumental": {
		"acoustic", "classical", "guitar", "piano", "world-music", "opera", "new-age",
	},
	"Mood": {
		"ambient", "chill", "happy", "sad", "sleep", "study",
	},
	"Single Genre": {
		"country", "honky-tonk", "folk", "singer-songwriter",
	},
}

// roleKeywords mark a credits entry as naming a performer rather than a
// technical contributor.
var roleKeywords = []string{
	"artist",
	"artists",
	"composer",
	"conductor",
	"conductor/soloist",
	"choir director",
	"chorus master",
	"graphic designer",
	"soloist",
	"soloists",
	"ensembles",
}

// exemptCategories name ensembles as the nominee, so a nomination with no
// artist and no credits uses its title as the artist.
var exemptCategories = []string{
	"Best Classical Vocal Soloist Performance",
	"Best Classical Vocal Performance",
	"Best Small Ensemble Performance (With Or Without Conductor)",
	"Best Classical Performance - Instrumental Soloist Or Soloists (With Or Without Orchestra)",
	"Most Promising New Classical Recording Artist",
	"Best Classical Performance - Vocal Soloist (With Or Without Orchestra)",
	"Best New Classical Artist",
	"Best Classical Vocal Soloist",
	"Best Performance - Instrumental Soloist Or Soloists (With Or Without Orchestra)",
	"Best Classical Performance - Vocal Soloist",
}
