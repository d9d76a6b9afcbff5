package safety

// Compiled-in filter tables. Operators extend or replace these through
// configs/safety/filters.yaml without touching code; these defaults keep a
// fresh checkout safe out of the box.

// defaultProfanity is matched case-insensitively as a substring against the
// full message. Entries cover the supported scripts (English, Telugu, Hindi
// plus common romanisations).
var defaultProfanity = []string{
	// English
	"fuck", "shit", "bitch", "asshole", "bastard", "dickhead",
	"motherfucker", "cunt", "slut", "whore",
	// Hindi / romanised Hindi
	"chutiya", "bhenchod", "madarchod", "bhosdi", "gandu", "harami",
	"kamina", "randi",
	"चूतिया", "भेनचोद", "मादरचोद", "गांडू", "हरामी",
	// Telugu / romanised Telugu
	"lanja", "dengey", "pooka", "erripuka", "sulli",
	"లంజ", "దెంగెయ్", "పూక",
}

// defaultBlockedTopics lists non-educational domains the assistant refuses.
var defaultBlockedTopics = []string{
	"dating", "girlfriend", "boyfriend", "hook up", "flirt",
	"medical advice", "diagnosis", "prescription", "medication dosage",
	"legal advice", "lawsuit", "sue ", "court case",
	"financial advice", "stock tips", "invest my money", "crypto trading",
	"betting", "gambling", "casino", "lottery",
	"politics", "election", "political party", "vote for",
	"religion", "religious", "astrology", "horoscope",
	"drugs", "how to hack", "steal", "weapon", "pirated",
	"adult content", "nsfw",
}

// defaultEducationalKeywords signal learning intent in English, Telugu and
// Hindi. A long message needs at least one of these to pass.
var defaultEducationalKeywords = []string{
	// English
	"learn", "code", "coding", "program", "project", "build", "create",
	"develop", "debug", "error", "function", "variable", "class", "method",
	"api", "database", "frontend", "backend", "deploy", "test", "algorithm",
	"data structure", "html", "css", "javascript", "python", "java", "react",
	"node", "sql", "git", "explain", "understand", "help", "how to", "what is",
	"why", "difference", "example", "tutorial", "practice", "exercise",
	"assignment", "homework", "study", "course", "skill", "interview",
	"resume", "career", "framework", "library", "install", "setup", "server",
	"web", "app", "mobile", "design", "improve", "fix", "implement",
	// Telugu
	"నేర్చుకో", "ప్రాజెక్ట్", "కోడ్", "ప్రోగ్రామ్", "సహాయం", "ఎలా", "అర్థం",
	// Hindi
	"सीखना", "प्रोजेक्ट", "कोड", "प्रोग्राम", "मदद", "कैसे", "समझ",
}
