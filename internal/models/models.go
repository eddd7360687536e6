package models

import "time"

type ListingItem struct {
	Slug   string `json:"slug"`
	Link   string `json:"link"`
	Title  string `json:"title"`
	Cover  string `json:"cover"`
	Latest string `json:"latest,omitempty"`
}

type MangaDetail struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genres      []string  `json:"genres"`
	Cover       string    `json:"cover"`
	Chapters    []Chapter `json:"chapters"`
}

type Chapter struct {
	ChapterID string `json:"chapterId"`
	Title     string `json:"title"`
	Link      string `json:"link"`
}

type Genre struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Bookmark struct {
	Slug    string    `json:"slug"`
	Title   string    `json:"title"`
	Cover   string    `json:"cover"`
	AddedAt time.Time `json:"addedAt"`
}
