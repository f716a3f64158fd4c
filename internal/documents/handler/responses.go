package handler

import "opsbridge/internal/documents"

type GenerateResponse struct {
	OK         bool     `json:"ok"`
	DocumentID string   `json:"documentId"`
	URL        string   `json:"url"`
	Missing    []string `json:"missing"`
}

func FromGenerated(g *documents.Generated) *GenerateResponse {
	return &GenerateResponse{OK: true, DocumentID: g.DocumentID, URL: g.URL, Missing: g.Missing}
}

type CreateFolderResponse struct {
	OK       bool   `json:"ok"`
	FolderID string `json:"folderId"`
}
