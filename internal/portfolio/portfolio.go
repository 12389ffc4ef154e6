// Package portfolio holds the static content of the site's sections.
package portfolio

import (
	"fmt"
	"time"
)

type Hero struct {
	Greeting string
	Name     string
	Intro    string
}

type Interest struct {
	Icon string
	Text string
}

type About struct {
	Paragraphs []string
	Image      Image
	Interests  []Interest
	Learning   string
}

type Image struct {
	Src string
	Alt string
}

// Tone selects the badge colour a skill is rendered with.
type Tone string

const (
	ToneOrange Tone = "orange"
	ToneBlue   Tone = "blue"
	ToneYellow Tone = "yellow"
	ToneCyan   Tone = "cyan"
	TonePurple Tone = "purple"
	ToneIndigo Tone = "indigo"
	ToneGray   Tone = "gray"
	ToneRed    Tone = "red"
)

type Skill struct {
	Name string
	Tone Tone
}

type SkillCategory struct {
	Category string
	Skills   []Skill
}

type Project struct {
	Title        string
	Description  string
	Image        string
	Technologies []string
	LiveURL      string
	GitHubURL    string
}

type SocialLink struct {
	Label string
	Icon  string
	Href  string
}

type Contact struct {
	Intro    string
	Invite   string
	Email    string
	Response string
}

type Footer struct {
	Owner  string
	Credit string
}

// Copyright renders the footer line for the year of now.
func (f Footer) Copyright(now time.Time) string {
	return fmt.Sprintf("© %d %s. All rights reserved.", now.Year(), f.Owner)
}

// Site is everything the home page renders apart from the feedback board.
type Site struct {
	Hero       Hero
	About      About
	Skills     []SkillCategory
	SkillsNote string
	Projects   []Project
	Contact    Contact
	Social     []SocialLink
	Footer     Footer
}

// Prose is the long-form copy, kept apart from the structured content.
type Prose struct {
	HeroIntro  string
	About      []string
	Learning   string
	SkillsNote string
	Contact    Contact
}

const ownerEmail = "nivedita@example.com"

// Default returns the site content with short placeholder copy. Use
// WithProse to fill in the long-form text.
func Default() Site {
	return Site{
		Hero: Hero{
			Greeting: "Hi, I'm",
			Name:     "Nivedita",
			Intro:    "I study Information Science and love mixing drinks.",
		},
		About: About{
			Image: Image{
				Src: "/images/nivedita-casual.jpeg",
				Alt: "Nivedita enjoying a night out by the waterfront",
			},
			Interests: []Interest{
				{Icon: "☕", Text: "Coffee"},
				{Icon: "📸", Text: "Photography"},
				{Icon: "🎬", Text: "Netflix"},
				{Icon: "🌊", Text: "Ocean documentaries"},
			},
		},
		Skills: []SkillCategory{
			{Category: "Frontend", Skills: []Skill{
				{Name: "HTML", Tone: ToneOrange},
				{Name: "CSS", Tone: ToneBlue},
				{Name: "JavaScript", Tone: ToneYellow},
				{Name: "React", Tone: ToneCyan},
			}},
			{Category: "Design Tools", Skills: []Skill{
				{Name: "Figma", Tone: TonePurple},
				{Name: "Photoshop", Tone: ToneIndigo},
			}},
			{Category: "Other Tools", Skills: []Skill{
				{Name: "WordPress", Tone: ToneGray},
				{Name: "Git", Tone: ToneRed},
			}},
		},
		Projects: []Project{
			{
				Title:        "E-commerce Store",
				Description:  "A modern, responsive e-commerce platform built with React and Node.js, featuring user authentication, payment processing, and inventory management.",
				Image:        "/images/modern-ecommerce-interface.png",
				Technologies: []string{"React", "Node.js", "MongoDB", "Stripe"},
				LiveURL:      "#",
				GitHubURL:    "#",
			},
			{
				Title:        "Restaurant Website",
				Description:  "An elegant restaurant website with online reservation system, menu display, and customer reviews. Features smooth animations and mobile-first design.",
				Image:        "/images/restaurant-website.png",
				Technologies: []string{"Next.js", "Tailwind CSS", "Prisma", "PostgreSQL"},
				LiveURL:      "#",
				GitHubURL:    "#",
			},
			{
				Title:        "Portfolio Blog",
				Description:  "A personal blog platform with content management system, allowing for easy article creation, editing, and publishing with SEO optimization.",
				Image:        "/images/clean-blog-website-interface.jpg",
				Technologies: []string{"Gatsby", "GraphQL", "Contentful", "Netlify"},
				LiveURL:      "#",
				GitHubURL:    "#",
			},
		},
		Contact: Contact{Email: ownerEmail},
		Social: []SocialLink{
			{Label: "GitHub", Icon: "github", Href: "https://github.com"},
			{Label: "LinkedIn", Icon: "linkedin", Href: "https://linkedin.com"},
			{Label: "Twitter", Icon: "twitter", Href: "https://twitter.com"},
			{Label: "Email", Icon: "mail", Href: "mailto:" + ownerEmail},
		},
		Footer: Footer{
			Owner:  "Nivedita",
			Credit: "Built with ❤️ using Go, Gin and HTMX",
		},
	}
}

// WithProse returns a copy of s with the non-empty fields of p applied.
func (s Site) WithProse(p Prose) Site {
	if p.HeroIntro != "" {
		s.Hero.Intro = p.HeroIntro
	}
	if len(p.About) > 0 {
		s.About.Paragraphs = append([]string(nil), p.About...)
	}
	if p.Learning != "" {
		s.About.Learning = p.Learning
	}
	if p.SkillsNote != "" {
		s.SkillsNote = p.SkillsNote
	}
	if p.Contact.Intro != "" {
		s.Contact.Intro = p.Contact.Intro
	}
	if p.Contact.Invite != "" {
		s.Contact.Invite = p.Contact.Invite
	}
	if p.Contact.Response != "" {
		s.Contact.Response = p.Contact.Response
	}
	if p.Contact.Email != "" {
		s.Contact.Email = p.Contact.Email
	}
	return s
}

// SkillCount is the number of skills across every category.
func (s Site) SkillCount() int {
	n := 0
	for _, c := range s.Skills {
		n += len(c.Skills)
	}
	return n
}
