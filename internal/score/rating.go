package score

// Rating summarizes a finished session for the results screen.
type Rating struct {
	Stars   int    `json:"stars"`
	Message string `json:"message"`
}

// Rate maps a final score to a star rating.
func Rate(points int) Rating {
	switch {
	case points >= 800:
		return Rating{Stars: 3, Message: "Excellent! You're a traffic safety expert!"}
	case points >= 600:
		return Rating{Stars: 2, Message: "Great job! You know your traffic rules well!"}
	case points >= 400:
		return Rating{Stars: 1, Message: "Good work! Keep practicing to improve!"}
	default:
		return Rating{Stars: 0, Message: "Better luck next time! Please don't drive till then!"}
	}
}
