package main

import "github.com/NiveditaB444/v0-personal-website-design1/internal/portfolio"

var (
	HeroIntro = `I study Information Science and love mixing drinks. Passionate about creating digital experiences and
	exploring the intersection of technology and creativity.`

	AboutStudies = `I'm a passionate Information Science student at the University of Illinois Urbana-Champaign, where I'm
	exploring the fascinating world of data, technology, and human-computer interaction. My academic journey
	has given me a deep appreciation for how information systems can solve real-world problems and improve
	people's lives.`

	AboutCreative = `Beyond academics, I have a creative side that I love to explore. Whether I'm experimenting with new
	cocktail recipes, capturing moments through photography, or diving deep into ocean documentaries, I'm
	always seeking new experiences and knowledge. This curiosity drives my approach to both learning and
	problem-solving.`

	AboutGoal = `I believe in the power of combining technical skills with creative thinking to build meaningful digital
	experiences. My goal is to bridge the gap between complex technology and intuitive user experiences.`

	Learning = `Advanced data visualization techniques, machine learning applications in information systems, and
	modern web development frameworks.`

	SkillsNote = `I'm constantly expanding my skill set and staying up-to-date with the latest technologies and best
	practices in web development, data science, and user experience design.`

	ContactIntro = `I'd love to hear from you! Send me a message and I'll get back to you as soon as possible.`

	ContactInvite = `Whether you have a project in mind, want to collaborate, or just want to say hello, I'm always open to
	new opportunities and conversations.`

	ContactResponse = `I typically respond to messages within 24-48 hours. Looking forward to hearing from you!`
)

func prose() portfolio.Prose {
	return portfolio.Prose{
		HeroIntro:  HeroIntro,
		About:      []string{AboutStudies, AboutCreative, AboutGoal},
		Learning:   Learning,
		SkillsNote: SkillsNote,
		Contact: portfolio.Contact{
			Intro:    ContactIntro,
			Invite:   ContactInvite,
			Response: ContactResponse,
		},
	}
}
