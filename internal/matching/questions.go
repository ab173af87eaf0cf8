package matching

// fallbackIcebreakers are used when the LLM is unavailable.
var fallbackIcebreakers = []string{
	"What's the best thing you've eaten this week?",
	"If you could work from anywhere for a month, where would you go?",
	"What's a hobby you picked up recently?",
	"Coffee or tea, and how do you take it?",
	"What's the last show or book you couldn't put down?",
	"What did you want to be when you were ten?",
	"What's a small thing that made your week better?",
	"If your job had a theme song, what would it be?",
}
