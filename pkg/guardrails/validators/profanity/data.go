package profanity

// Default wordlist, English plus Italian. Matching is case-insensitive on
// word boundaries; matched terms are masked in place.
var defaultWordlist = []string{
	// English
	"hell",
	"damn",
	"shit",
	"fuck",
	"fucking",
	"bitch",
	"bastard",
	"asshole",
	"crap",
	"dick",
	"piss",
	"slut",
	"whore",
	// Italian
	"merda",
	"cazzo",
	"stronzo",
	"stronza",
	"vaffanculo",
	"coglione",
	"puttana",
	"troia",
	"bastardo",
	"porca",
	"porco",
	"culo",
	"minchia",
}
