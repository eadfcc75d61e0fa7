package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/myflix/movies-api/internal/metrics"
	"github.com/myflix/movies-api/internal/models"
)

// DynamoMovieStore implements MovieStore against a DynamoDB table keyed by
// movie_id with title-index, genre-index and director-index GSIs.
type DynamoMovieStore struct {
	client    *dynamodb.Client
	tableName string
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewDynamoMovieStore(client *dynamodb.Client, tableName string, timeout time.Duration, logger *logrus.Logger) *DynamoMovieStore {
	return &DynamoMovieStore{
		client:    client,
		tableName: tableName,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *DynamoMovieStore) List(ctx context.Context) ([]models.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var movies []models.Movie
	var lastKey map[string]types.AttributeValue

	for {
		start := time.Now()
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: lastKey,
		})
		metrics.RecordStoreOperation(s.tableName, "scan", statusLabel(err), time.Since(start))

		if err != nil {
			return nil, fmt.Errorf("scan movies: %w", err)
		}

		var page []models.Movie
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal movies: %w", err)
		}
		movies = append(movies, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return movies, nil
}

func (s *DynamoMovieStore) FindByTitle(ctx context.Context, title string) (*models.Movie, error) {
	movie, err := s.queryOne(ctx, "title-index", "title", title)
	if err != nil {
		return nil, err
	}
	return movie, nil
}

func (s *DynamoMovieStore) FindByGenre(ctx context.Context, genreName string) (*models.Genre, error) {
	movie, err := s.queryOne(ctx, "genre-index", "genre_name", genreName)
	if err != nil {
		return nil, err
	}
	return &movie.Genre, nil
}

func (s *DynamoMovieStore) FindByDirector(ctx context.Context, directorName string) (*models.Director, error) {
	movie, err := s.queryOne(ctx, "director-index", "director_name", directorName)
	if err != nil {
		return nil, err
	}
	return &movie.Director, nil
}

// Put writes a movie, keeping the flattened GSI key attributes in sync with
// the nested genre and director documents.
func (s *DynamoMovieStore) Put(ctx context.Context, movie *models.Movie) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	movie.GenreName = movie.Genre.Name
	movie.DirectorName = movie.Director.Name

	item, err := attributevalue.MarshalMap(movie)
	if err != nil {
		return fmt.Errorf("marshal movie: %w", err)
	}

	start := time.Now()
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	metrics.RecordStoreOperation(s.tableName, "put", statusLabel(err), time.Since(start))

	if err != nil {
		return fmt.Errorf("put movie: %w", err)
	}

	return nil
}

func (s *DynamoMovieStore) queryOne(ctx context.Context, indexName, keyName, value string) (*models.Movie, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.client.Query(ctx, gsiQuery(s.tableName, indexName, keyName, value))
	metrics.RecordStoreOperation(s.tableName, "query", statusLabel(err), time.Since(start))

	if err != nil {
		return nil, fmt.Errorf("query %s for %q: %w", indexName, value, err)
	}
	if len(result.Items) == 0 {
		return nil, ErrNotFound
	}

	var movie models.Movie
	if err := attributevalue.UnmarshalMap(result.Items[0], &movie); err != nil {
		return nil, fmt.Errorf("unmarshal movie: %w", err)
	}

	return &movie, nil
}

// gsiQuery builds a single-item lookup against a GSI. The key name is always
// aliased through ExpressionAttributeNames: DynamoDB parses key conditions
// server-side and rejects reserved words like TITLE used bare.
func gsiQuery(tableName, indexName, keyName, value string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:                aws.String(tableName),
		IndexName:                aws.String(indexName),
		KeyConditionExpression:   aws.String("#k = :v"),
		ExpressionAttributeNames: map[string]string{"#k": keyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
		Limit: aws.Int32(1),
	}
}
