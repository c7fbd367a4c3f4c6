package entity

// Identity is the already-authenticated caller of a request.
type Identity struct {
	ID       string `json:"_id"`
	Fullname string `json:"fullname"`
	ImgURL   string `json:"imgUrl,omitempty"`
	IsAdmin  bool   `json:"isAdmin"`
}

func (i *Identity) MiniUser() MiniUser {
	return MiniUser{
		ID:       i.ID,
		Fullname: i.Fullname,
		ImgURL:   i.ImgURL,
	}
}
