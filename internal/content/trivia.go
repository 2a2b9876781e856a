package content

// Question is one entry of the fixed trivia bank.
type Question struct {
	ID           string
	Text         string
	Options      []string
	CorrectIndex int
}

// TriviaQuestions is played in order, one question per trivia step.
var TriviaQuestions = []Question{
	{
		ID:           "1",
		Text:         "How many weeks is a typical pregnancy?",
		Options:      []string{"38 weeks", "40 weeks", "42 weeks", "36 weeks"},
		CorrectIndex: 1,
	},
	{
		ID:           "2",
		Text:         "What is the average weight of a newborn baby?",
		Options:      []string{"5-6 pounds", "7-8 pounds", "9-10 pounds", "11-12 pounds"},
		CorrectIndex: 1,
	},
	{
		ID:           "3",
		Text:         "At what month do babies typically start teething?",
		Options:      []string{"2-3 months", "4-6 months", "7-9 months", "10-12 months"},
		CorrectIndex: 1,
	},
	{
		ID:           "4",
		Text:         "What is the most common time for babies to be born?",
		Options:      []string{"Morning", "Afternoon", "Evening", "Midnight"},
		CorrectIndex: 0,
	},
	{
		ID:           "5",
		Text:         "How many diapers does a newborn typically go through per day?",
		Options:      []string{"6-8", "8-10", "10-12", "12-14"},
		CorrectIndex: 2,
	},
	{
		ID:           "6",
		Text:         "What is the first sense a baby develops?",
		Options:      []string{"Sight", "Hearing", "Touch", "Taste"},
		CorrectIndex: 2,
	},
	{
		ID:           "7",
		Text:         "At what age do most babies start walking?",
		Options:      []string{"8-10 months", "10-12 months", "12-15 months", "15-18 months"},
		CorrectIndex: 2,
	},
	{
		ID:           "8",
		Text:         "What is the term for a baby's first poop?",
		Options:      []string{"Meconium", "Colostrum", "Vernix", "Lanugo"},
		CorrectIndex: 0,
	},
}
