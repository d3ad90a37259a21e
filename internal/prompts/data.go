package prompts

type TopicData struct {
	Topic string
}

type SubDetailsData struct {
	Topic string
	Term  string
}

type QuizData struct {
	Topic       string
	Subtopic    string
	Count       int
	MCQ         int
	Descriptive int
}

// Kind is "mcq", "descriptive" or empty for either.
type QuizSupplementData struct {
	Topic    string
	Subtopic string
	Count    int
	Kind     string
	Existing []string
}

type AnalyzeAnswersData struct {
	AnswersJSON string
}

type ChatTurn struct {
	Role    string
	Content string
}

type ChatData struct {
	BotName string
	History []ChatTurn
	Message string
}

type Document struct {
	Name string
	Text string
}

type SummaryData struct {
	Instructions string
	Documents    []Document
}
