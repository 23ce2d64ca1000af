package telegram

// Button labels recognized by the dispatcher. They double as the main
// menu keyboard contents, so a user normally taps them instead of
// typing.
const (
	ButtonPartake     = "Partake in the challenge"
	ButtonCheckPoints = "Check Points"
	ButtonLeaderboard = "Leaderboard"
	ButtonMainChannel = "Main Channel"
)

func MainMenuKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: ButtonPartake}, {Text: ButtonCheckPoints}},
			{{Text: ButtonLeaderboard}, {Text: ButtonMainChannel}},
		},
		ResizeKeyboard: true,
	}
}
