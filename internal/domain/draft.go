package domain

// Draft is the client-submitted input document before validation. Once a
// draft is accepted it is frozen into a Document snapshot and never written
// to again; enhancement works on an in-memory copy only.
type Draft struct {
	Profile        Profile            `json:"profile"`
	Experience     []ExperienceEntry  `json:"experience,omitempty"`
	Education      []EducationEntry   `json:"education,omitempty"`
	Skills         *Skills            `json:"skills,omitempty"`
	Projects       []ProjectEntry     `json:"projects,omitempty"`
	JobDescription string             `json:"job_description,omitempty"`
	Enhancement    EnhancementOptions `json:"enhancement,omitempty"`
	TemplateStyle  string             `json:"template_style,omitempty"`
}

// Profile carries the identity section of a draft.
type Profile struct {
	FullName  string   `json:"full_name"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Location  string   `json:"location,omitempty"`
	LinkedIn  string   `json:"linkedin,omitempty"`
	GitHub    string   `json:"github,omitempty"`
	Website   string   `json:"website,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Awards    []string `json:"awards,omitempty"`
	Languages []string `json:"languages,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// ExperienceEntry is a single work experience item.
type ExperienceEntry struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Location     string   `json:"location,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// EducationEntry is a single education item.
type EducationEntry struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	GraduationDate string   `json:"graduation_date,omitempty"`
	GPA            string   `json:"gpa,omitempty"`
	Honors         string   `json:"honors,omitempty"`
	Coursework     []string `json:"coursework,omitempty"`
}

// ProjectEntry is a single project item.
type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
	Date         string   `json:"date,omitempty"`
}

// Skills groups skill lists by category.
type Skills struct {
	Technical      []string `json:"technical,omitempty"`
	Languages      []string `json:"languages,omitempty"`
	Frameworks     []string `json:"frameworks,omitempty"`
	Tools          []string `json:"tools,omitempty"`
	SoftSkills     []string `json:"soft_skills,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

// EnhancementOptions toggles the optional AI rewriting per section.
type EnhancementOptions struct {
	EnhanceSummary     bool   `json:"enhance_summary,omitempty"`
	EnhanceExperience  bool   `json:"enhance_experience,omitempty"`
	EnhanceProjects    bool   `json:"enhance_projects,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// Enabled reports whether any enhancement section is requested.
func (o EnhancementOptions) Enabled() bool {
	return o.EnhanceSummary || o.EnhanceExperience || o.EnhanceProjects
}

// Clone returns a deep copy of the draft. The stored snapshot and the
// in-memory enhanced copy must never alias the caller's slices.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.Profile.Awards = cloneStrings(d.Profile.Awards)
	out.Profile.Languages = cloneStrings(d.Profile.Languages)
	out.Profile.Interests = cloneStrings(d.Profile.Interests)

	if d.Experience != nil {
		out.Experience = make([]ExperienceEntry, len(d.Experience))
		for i, e := range d.Experience {
			e.Achievements = cloneStrings(e.Achievements)
			out.Experience[i] = e
		}
	}
	if d.Education != nil {
		out.Education = make([]EducationEntry, len(d.Education))
		for i, e := range d.Education {
			e.Coursework = cloneStrings(e.Coursework)
			out.Education[i] = e
		}
	}
	if d.Projects != nil {
		out.Projects = make([]ProjectEntry, len(d.Projects))
		for i, p := range d.Projects {
			p.Technologies = cloneStrings(p.Technologies)
			out.Projects[i] = p
		}
	}
	if d.Skills != nil {
		s := Skills{
			Technical:      cloneStrings(d.Skills.Technical),
			Languages:      cloneStrings(d.Skills.Languages),
			Frameworks:     cloneStrings(d.Skills.Frameworks),
			Tools:          cloneStrings(d.Skills.Tools),
			SoftSkills:     cloneStrings(d.Skills.SoftSkills),
			Certifications: cloneStrings(d.Skills.Certifications),
		}
		out.Skills = &s
	}
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
