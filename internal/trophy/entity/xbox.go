package entity

// XboxTitle is one title from the Xbox title history. Achievement progress is
// expressed in gamerscore rather than per-grade counts.
type XboxTitle struct {
	TitleID      string          `json:"titleId"`
	Name         string          `json:"name"`
	DisplayImage string          `json:"displayImage"`
	Devices      []string        `json:"devices,omitempty"`
	Achievement  XboxAchievement `json:"achievement"`
	TitleHistory struct {
		LastTimePlayed string `json:"lastTimePlayed"`
	} `json:"titleHistory"`
}

type XboxAchievement struct {
	CurrentAchievements int `json:"currentAchievements"`
	TotalAchievements   int `json:"totalAchievements"`
	CurrentGamerscore   int `json:"currentGamerscore"`
	TotalGamerscore     int `json:"totalGamerscore"`
	ProgressPercentage  int `json:"progressPercentage"`
}
