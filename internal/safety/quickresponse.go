package safety

import "strings"

// intentGroup is one quick-response rule: the first group with a matching
// pattern wins, so order is part of the contract.
type intentGroup struct {
	name     string
	exact    []string // matched against the whole trimmed message
	contains []string // matched as substrings
	response string
}

// QuickResponder answers common conversational intents with canned replies,
// bypassing the model and the credit system entirely.
type QuickResponder struct {
	groups []intentGroup
}

// NewQuickResponder builds the ordered intent table.
func NewQuickResponder() *QuickResponder {
	return &QuickResponder{groups: []intentGroup{
		{
			name:  "greeting",
			exact: []string{"hi", "hello", "hey", "hii", "hiii", "namaste", "namaskaram", "నమస్కారం", "नमस्ते"},
			response: "Hello! 👋 Welcome to ProjectHub.\n\n" +
				"I'm Diksuchi, your learning assistant. I can help you understand coding concepts, " +
				"debug errors, plan projects, and work through your project roadmap step by step.\n\n" +
				"What would you like to work on today?",
		},
		{
			name:     "thanks",
			exact:    []string{"thanks", "thank you", "thx", "ty", "ధన్యవాదాలు", "धन्यवाद"},
			contains: []string{"thank you so much", "thanks a lot"},
			response: "You're welcome! 😊\n\n" +
				"Keep building - that's the best way to learn. Come back any time you get stuck " +
				"or want to go deeper into a topic.",
		},
		{
			name:     "identity",
			contains: []string{"who are you", "who r u", "what are you"},
			response: "I'm Diksuchi, the AI learning assistant on ProjectHub.\n\n" +
				"I help students understand the projects they're building: explaining code, " +
				"clearing up concepts, suggesting next steps, and pointing you to the right part " +
				"of your roadmap when you're unsure what to do next.",
		},
		{
			name:     "platform",
			contains: []string{"what is projecthub", "what is this platform", "what is this website", "about this platform"},
			response: "ProjectHub is a marketplace for learning through real coding projects.\n\n" +
				"You can browse projects with complete source code and guides, request a custom " +
				"project built for your requirements, and follow a milestone-based roadmap that " +
				"takes you from setup to deployment - with me available at every step.",
		},
		{
			name:     "capabilities",
			contains: []string{"what can you do", "how can you help", "what do you do"},
			response: "Here's what I can help you with:\n\n" +
				"- Explaining code and programming concepts in simple terms\n" +
				"- Debugging errors in your project\n" +
				"- Planning what to build next on your roadmap\n" +
				"- Reviewing your approach before you write code\n" +
				"- Career and interview preparation questions related to your stack\n\n" +
				"Ask me anything related to your learning or your current project.",
		},
		{
			name:  "goodbye",
			exact: []string{"bye", "goodbye", "see you", "cya", "gtg"},
			response: "Goodbye! 👋 Happy coding.\n\n" +
				"Your progress is saved - pick up right where you left off whenever you return.",
		},
		{
			name:     "howareyou",
			exact:    []string{"how are you", "how r u"},
			contains: []string{"how are you doing"},
			response: "I'm doing great and ready to help! 😄\n\n" +
				"More importantly - how is your project going? Tell me where you are and " +
				"I'll help you take the next step.",
		},
		{
			name:     "languages",
			contains: []string{"which languages do you", "what languages do you", "do you speak telugu", "do you speak hindi", "language support"},
			response: "I can chat with you in English, Telugu (తెలుగు), and Hindi (हिन्दी).\n\n" +
				"Ask your question in whichever of these is most comfortable for you.",
		},
		{
			name:     "name",
			contains: []string{"your name", "whats ur name", "what's your name"},
			response: "My name is Diksuchi - it means \"compass\" in Telugu. 🧭\n\n" +
				"The idea is simple: whenever you're lost in your project, I point you in " +
				"the right direction.",
		},
		{
			name:  "help",
			exact: []string{"help", "help me", "/help"},
			response: "Sure - here's how to get the most out of me:\n\n" +
				"- Paste an error message and I'll explain what's wrong\n" +
				"- Name a concept (say, \"REST API\" or \"useState\") and I'll explain it\n" +
				"- Ask \"what should I do next?\" and I'll look at your roadmap step\n\n" +
				"What do you need help with right now?",
		},
	}}
}

// Match returns the canned response for the first matching intent group, or
// ok=false when the message should proceed to paid-model handling.
func (q *QuickResponder) Match(message string) (string, bool) {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = strings.TrimRight(msg, "?!. ")
	if msg == "" {
		return "", false
	}
	for _, g := range q.groups {
		for _, p := range g.exact {
			if msg == p {
				return g.response, true
			}
		}
		for _, p := range g.contains {
			if strings.Contains(msg, p) {
				return g.response, true
			}
		}
	}
	return "", false
}
