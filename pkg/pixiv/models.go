package pixiv

// RawIllust is one illustration item as returned by the app API, prior to
// extraction into the sync database shape.
type RawIllust struct {
	ID             int64          `json:"id"`
	Title          string         `json:"title"`
	CreateDate     string         `json:"create_date"`
	Width          int            `json:"width"`
	Height         int            `json:"height"`
	User           RawUser        `json:"user"`
	Tags           []RawTag       `json:"tags"`
	MetaSinglePage MetaSinglePage `json:"meta_single_page"`
	MetaPages      []MetaPage     `json:"meta_pages"`
}

// RawUser is the author block embedded in an illust item.
type RawUser struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Account string `json:"account"`
}

// RawTag is one tag entry of an illust item.
type RawTag struct {
	Name           string `json:"name"`
	TranslatedName string `json:"translated_name"`
}

// MetaSinglePage carries the original image URL of single-page illusts.
type MetaSinglePage struct {
	OriginalImageURL string `json:"original_image_url"`
}

// MetaPage carries the per-page image URLs of multi-page illusts.
type MetaPage struct {
	ImageURLs struct {
		Original string `json:"original"`
	} `json:"image_urls"`
}

// illustsResponse is the envelope of the listing endpoints.
type illustsResponse struct {
	Illusts []RawIllust `json:"illusts"`
	NextURL string      `json:"next_url"`
	Error   *apiError   `json:"error"`
}

type apiError struct {
	Message     string `json:"message"`
	UserMessage string `json:"user_message"`
}

// message returns whichever error text the provider populated.
func (e *apiError) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.UserMessage
}

// authResponse is the envelope of the OAuth token endpoint.
type authResponse struct {
	Response struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
	} `json:"response"`
}
