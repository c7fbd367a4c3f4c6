package entity

import (
	"time"
)

// MiniUser is the denormalized user reference stored on toys and messages.
type MiniUser struct {
	ID       string `json:"_id" bson:"_id" firestore:"_id"`
	Fullname string `json:"fullname" bson:"fullname" firestore:"fullname"`
	ImgURL   string `json:"imgUrl,omitempty" bson:"imgUrl,omitempty" firestore:"imgUrl,omitempty"`
}

type ToyMsg struct {
	ID        string    `json:"id" bson:"id" firestore:"id"`
	Txt       string    `json:"txt" bson:"txt" firestore:"txt"`
	By        MiniUser  `json:"by" bson:"by" firestore:"by"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
}

type ChatMsg struct {
	ID        string    `json:"id" bson:"id" firestore:"id"`
	From      string    `json:"from" bson:"from" firestore:"from"`
	Txt       string    `json:"txt" bson:"txt" firestore:"txt"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp" firestore:"timestamp"`
}

type Toy struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	InStock     bool      `json:"inStock"`
	Labels      []string  `json:"labels"`
	CreatedAt   time.Time `json:"createdAt"`
	Owner       *MiniUser `json:"owner,omitempty"`
	Msgs        []ToyMsg  `json:"msgs"`
	ChatHistory []ChatMsg `json:"chatHistory,omitempty"`
}

// ToyPatch carries the fields of an update. Nil fields are left untouched.
type ToyPatch struct {
	Name    *string
	Price   *float64
	InStock *bool
	Labels  []string
}

func (p ToyPatch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.InStock == nil && p.Labels == nil
}

type LabelStat struct {
	Label    string  `json:"-"`
	AvgPrice float64 `json:"avgPrice"`
	Total    int     `json:"total"`
	InStock  int     `json:"inStock"`
	Percent  float64 `json:"percent"`
}

// UniqueLabels drops repeated and blank labels, keeping first-seen order.
func UniqueLabels(labels []string) []string {
	if labels == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
