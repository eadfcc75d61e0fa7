package models

// Genre is a movie's genre with its catalog description.
type Genre struct {
	Name        string `json:"Name" dynamodbav:"name"`
	Description string `json:"Description" dynamodbav:"description"`
}

// Director holds a director's biographical details.
type Director struct {
	Name  string `json:"Name" dynamodbav:"name"`
	Bio   string `json:"Bio" dynamodbav:"bio"`
	Birth string `json:"Birth,omitempty" dynamodbav:"birth,omitempty"`
	Death string `json:"Death,omitempty" dynamodbav:"death,omitempty"`
}

// Movie is a catalog entry. GenreName and DirectorName duplicate the nested
// names as top-level attributes because DynamoDB secondary indexes cannot key
// on nested document fields; the store keeps them in sync on every write.
type Movie struct {
	MovieID      string   `json:"movie_id" dynamodbav:"movie_id"` // Primary Key
	Title        string   `json:"Title" dynamodbav:"title"`
	Description  string   `json:"Description" dynamodbav:"description"`
	Genre        Genre    `json:"Genre" dynamodbav:"genre"`
	Director     Director `json:"Director" dynamodbav:"director"`
	Actors       []string `json:"Actors,omitempty" dynamodbav:"actors,omitempty"`
	ImagePath    string   `json:"ImgPath,omitempty" dynamodbav:"image_path,omitempty"`
	Featured     bool     `json:"Featured" dynamodbav:"featured"`
	GenreName    string   `json:"-" dynamodbav:"genre_name"`    // GSI key (genre-index)
	DirectorName string   `json:"-" dynamodbav:"director_name"` // GSI key (director-index)
}
