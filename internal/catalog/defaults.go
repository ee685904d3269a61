package catalog

import (
	"github.com/eduportal/eduportal-search/pkg/types"
)

// DefaultOpportunities is the built-in fallback catalog. It is merged after imported
// entries so an import can override any of them.
var DefaultOpportunities = []types.Opportunity{
	{
		Name:        "National Scholarship Portal (NSP)",
		Description: "One-stop portal for central and state scholarships for SC, ST, OBC, minority and merit-based students",
		Source:      "Government of India",
		Category:    types.CategoryScholarships,
		Priority:    types.IntPtr(types.PriorityOfficial),
		URL:         "https://scholarships.gov.in",
		States:      []string{"All India"},
	},
	{
		Name:        "AICTE Pragati Scholarship for Girls",
		Description: "Scholarship for women students admitted to technical degree and diploma courses",
		Source:      "AICTE",
		Category:    types.CategoryScholarships,
		Priority:    types.IntPtr(types.PriorityOfficial),
		URL:         "https://www.aicte-india.org/schemes/students-development-schemes/Pragati",
		States:      []string{"All India"},
	},
	{
		Name:        "Post Matric Scholarship for Minorities",
		Description: "Financial aid for minority community students studying from class 11 to PhD",
		Source:      "Ministry of Minority Affairs",
		Category:    types.CategoryScholarships,
		URL:         "https://minorityaffairs.gov.in",
	},
	{
		Name:        "Smart India Hackathon",
		Description: "Nationwide coding competition where students solve problem statements from ministries and industry",
		Source:      "Ministry of Education",
		Category:    types.CategoryHackathons,
		Priority:    types.IntPtr(types.PriorityOfficial),
		URL:         "https://www.sih.gov.in",
	},
	{
		Name:        "HackWithInfy",
		Description: "Competitive programming hackathon for engineering students with pre-placement interview offers",
		Source:      "Infosys",
		Category:    types.CategoryHackathons,
		URL:         "https://www.infosys.com/careers/hackwithinfy.html",
	},
	{
		Name:        "NPTEL Online Certification Courses",
		Description: "Free online courses and certification from IITs and IISc in engineering and science",
		Source:      "NPTEL",
		Category:    types.CategoryWorkshops,
		Priority:    types.IntPtr(types.PriorityOfficial),
		URL:         "https://nptel.ac.in",
	},
	{
		Name:        "Spoken Tutorial IIT Bombay",
		Description: "Free self-paced training in open source software with certificates",
		Source:      "IIT Bombay",
		Category:    types.CategoryWorkshops,
		URL:         "https://spoken-tutorial.org",
	},
	{
		Name:        "AICTE Internship Portal",
		Description: "Government internship listings across companies and startups for students",
		Source:      "AICTE",
		Category:    types.CategoryInternships,
		Priority:    types.IntPtr(types.PriorityOfficial),
		URL:         "https://internship.aicte-india.org",
	},
	{
		Name:        "ISRO Student Internship Programme",
		Description: "Research internship at ISRO centres for engineering and science students",
		Source:      "ISRO",
		Category:    types.CategoryInternships,
		URL:         "https://www.isro.gov.in/InternshipAndProjects.html",
	},
}

// DefaultSource serves DefaultOpportunities
func DefaultSource() *StaticSource {
	return NewStaticSource("defaults", DefaultOpportunities)
}
