package models

// AssetRecord is one entry of the server's asset listing.
type AssetRecord struct {
	ID       int64  `json:"id"`
	TypeID   int64  `json:"type_id"`
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
}

// AssetList is the envelope returned by the asset listing endpoint.
type AssetList struct {
	Assets []AssetRecord `json:"assets"`
}
