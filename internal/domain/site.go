package domain

// Profile describes the portfolio owner the assistant speaks about.
type Profile struct {
	Name           string   `yaml:"name" json:"name"`
	FirstName      string   `yaml:"firstName" json:"firstName"`
	Title          string   `yaml:"title" json:"title"`
	Phone          string   `yaml:"phone" json:"phone,omitempty"`
	Email          string   `yaml:"email" json:"email"`
	Location       string   `yaml:"location" json:"location"`
	Skills         []string `yaml:"skills" json:"skills"`
	Experience     []string `yaml:"experience" json:"experience"`
	Certifications []string `yaml:"certifications" json:"certifications"`
}

// Project is a single portfolio card. URL is optional.
type Project struct {
	ID        string `yaml:"id" json:"id"`
	Title     string `yaml:"title" json:"title"`
	Category  string `yaml:"category" json:"category"`
	ShortDesc string `yaml:"shortDesc" json:"shortDesc"`
	FullDesc  string `yaml:"fullDesc" json:"fullDesc"`
	Impact    string `yaml:"impact" json:"impact"`
	Tech      string `yaml:"tech" json:"tech"`
	URL       string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Site is one portfolio variant: the owner, the assistant's guardrails and the
// ordered project list.
type Site struct {
	ID           string    `yaml:"id" json:"id"`
	Owner        Profile   `yaml:"owner" json:"owner"`
	Purpose      string    `yaml:"purpose" json:"purpose"`
	Guardrails   []string  `yaml:"guardrails" json:"guardrails"`
	InquiryBlurb string    `yaml:"inquiryBlurb" json:"inquiryBlurb"`
	AvatarURL    string    `yaml:"avatarUrl" json:"avatarUrl"`
	Projects     []Project `yaml:"projects" json:"projects"`
}
