package slackbot

import "math/rand"

const startupGreeting = "👋 Barista is up! Type `/help` to see what I can do. Fancy a chat? Try `/coffee`."

var dailyQuestions = []string{
	"What's one thing you learned this week?",
	"What's your go-to productivity trick?",
	"If you could swap jobs with anyone for a day, who would it be?",
	"What's the best piece of advice you've ever received?",
	"What's a movie or show everyone should watch?",
	"What's your favorite way to spend a day off?",
	"Which skill would you love to master overnight?",
	"What's the most underrated snack?",
	"Where's the best place you've ever traveled?",
	"What's a small win you had recently?",
}

func dailyQuestion() string {
	return dailyQuestions[rand.Intn(len(dailyQuestions))]
}
