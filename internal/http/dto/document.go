package dto

type IngestDocumentRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
	Text string `json:"text" binding:"required,min=1"`
}

type IngestDocumentResponse struct {
	Name     string `json:"name"`
	Enqueued bool   `json:"enqueued"`
}
