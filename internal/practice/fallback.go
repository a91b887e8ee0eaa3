package practice

func fallbackPhrases() []Item {
	phrases := []string{
		"Hello, how are you?",
		"My name is John.",
		"Nice to meet you.",
		"How was your day?",
		"I'm doing well, thank you.",
		"What's your favorite color?",
		"I like to read books.",
		"The weather is nice today.",
		"Can you help me please?",
		"Thank you very much.",
		"See you tomorrow.",
		"Have a great day!",
		"I'm sorry, I don't understand.",
		"Could you repeat that?",
		"Where are you from?",
	}
	items := make([]Item, 0, len(phrases))
	for i, phrase := range phrases {
		items = append(items, Item{ID: i + 1, Prompt: phrase, Difficulty: DifficultyBeginner})
	}
	return items
}

func fallbackDialogues() []Item {
	turns := []struct {
		prompt   string
		response string
		keywords []string
	}{
		{"Hi! My name is Sarah. What is your name?", "My name is Amina.", []string{"my", "name"}},
		{"Nice to meet you, Amina! How are you doing today?", "I'm doing well, thank you.", []string{"well", "thank"}},
		{"That's great to hear! Where are you from?", "I'm from Pakistan.", []string{"from"}},
		{"Wonderful! What do you like to do in your free time?", "I like to read books and watch movies.", []string{"like"}},
		{"That sounds interesting! What's your favorite book?", "I really enjoy mystery novels.", []string{"enjoy"}},
	}
	items := make([]Item, 0, len(turns))
	for i, turn := range turns {
		items = append(items, Item{
			ID:               i + 1,
			Prompt:           turn.prompt,
			Secondary:        "Try saying: " + turn.response,
			ExpectedKeywords: turn.keywords,
			Difficulty:       DifficultyBeginner,
		})
	}
	return items
}

func fallbackTopics() []Item {
	topics := []string{
		"The importance of education",
		"The impact of technology on society",
		"Environmental conservation and sustainability",
		"The role of art in human culture",
		"The future of work and automation",
		"Social media and its effects on relationships",
	}
	items := make([]Item, 0, len(topics))
	for i, topic := range topics {
		items = append(items, Item{ID: i + 1, Prompt: topic, Difficulty: DifficultyAdvanced})
	}
	return items
}

func fallbackInterviewPrompts() []Item {
	return []Item{
		{
			ID:         1,
			Prompt:     "Tell me about a time you had to lead a team through a challenging project. What was your role, and how did you ensure the project's success?",
			Secondary:  "Graduate School",
			Difficulty: DifficultyAdvanced,
		},
		{
			ID:         2,
			Prompt:     "Describe your leadership philosophy and how you motivate teams.",
			Secondary:  "Job Interview",
			Difficulty: DifficultyAdvanced,
		},
		{
			ID:         3,
			Prompt:     "How would you contribute to cross-cultural understanding in our program?",
			Secondary:  "Cultural Exchange",
			Difficulty: DifficultyAdvanced,
		},
	}
}

func fallbackScenarios() []Item {
	return []Item{
		{
			ID:         1,
			Prompt:     "Workplace Conflict Resolution",
			Secondary:  "You are a team leader mediating a conflict between two colleagues who have different approaches to a project. Both are skilled professionals but their communication styles clash.",
			Difficulty: NormalizeDifficulty("Expert"),
		},
		{
			ID:         2,
			Prompt:     "Cultural Misunderstanding",
			Secondary:  "During an international meeting, a cultural misunderstanding has created tension. You need to address the situation diplomatically while maintaining professional relationships.",
			Difficulty: NormalizeDifficulty("Advanced"),
		},
		{
			ID:         3,
			Prompt:     "Difficult Performance Feedback",
			Secondary:  "You need to have a performance review with a team member whose work has been declining. They are going through personal challenges, and you must balance empathy with professional requirements.",
			Difficulty: NormalizeDifficulty("Expert"),
		},
	}
}
