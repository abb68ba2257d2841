package models

import "time"

type Course struct {
	ID           string     `json:"id"`
	Title        string     `json:"title" validate:"required,max=100"`
	Description  string     `json:"description" validate:"required,max=2000"`
	Category     string     `json:"category" validate:"required,max=50"`
	CreatedBy    string     `json:"createdBy" validate:"required,max=100"`
	Thumbnail    MediaRef   `json:"thumbnail"`
	Lectures     []Lecture  `json:"lectures,omitempty"`
	LectureCount int        `json:"numberOfLectures"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type Lecture struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=2000"`
	Media       MediaRef  `json:"lecture"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AppendLecture adds l to the end of the sequence.
func (c *Course) AppendLecture(l Lecture) {
	c.Lectures = append(c.Lectures, l)
	c.LectureCount = len(c.Lectures)
}

// RemoveLecture drops the lecture with the given id, preserving the order of
// the rest. It reports the removed lecture and whether it was present.
func (c *Course) RemoveLecture(id string) (Lecture, bool) {
	idx := c.LectureIndex(id)
	if idx == -1 {
		return Lecture{}, false
	}
	removed := c.Lectures[idx]
	c.Lectures = append(c.Lectures[:idx], c.Lectures[idx+1:]...)
	c.LectureCount = len(c.Lectures)
	return removed, true
}

func (c *Course) LectureIndex(id string) int {
	for i := range c.Lectures {
		if c.Lectures[i].ID == id {
			return i
		}
	}
	return -1
}
