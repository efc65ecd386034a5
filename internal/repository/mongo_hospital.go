package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emergency-assist/hospital-recommender/internal/domain"
)

const defaultHospitalCollection = "hospitals"

type mongoLocation struct {
	Lat     float64 `bson:"lat"`
	Lng     float64 `bson:"lng"`
	Address string  `bson:"address"`
}

type mongoCapacity struct {
	Total     int    `bson:"total"`
	Available int    `bson:"available"`
	Doctors   *int   `bson:"doctors,omitempty"`
	Equipment string `bson:"equipment,omitempty"`
}

type mongoDoctor struct {
	Name           string `bson:"name"`
	Specialization string `bson:"specialization"`
	Available      bool   `bson:"available"`
}

type mongoEquipment struct {
	Name      string `bson:"name"`
	Available bool   `bson:"available"`
}

// hospitalDocument is the stored shape of a hospital in the hospitals collection.
type hospitalDocument struct {
	ID                string           `bson:"_id"`
	Name              string           `bson:"name"`
	Location          *mongoLocation   `bson:"location,omitempty"`
	Specialties       []string         `bson:"specialties"`
	EmergencyCapacity mongoCapacity    `bson:"emergencyCapacity"`
	Doctors           []mongoDoctor    `bson:"doctors"`
	Equipment         []mongoEquipment `bson:"equipment"`
	ContactNumber     string           `bson:"contactNumber,omitempty"`
	Email             string           `bson:"email,omitempty"`
	Rating            float64          `bson:"rating"`
	IsActive          bool             `bson:"isActive"`
	UpdatedAt         time.Time        `bson:"updatedAt"`
}

// MongoHospitalRepository reads and writes hospitals in a MongoDB collection.
type MongoHospitalRepository struct {
	collection *mongo.Collection
	timeout    time.Duration
	log        *logrus.Logger
}

// NewMongoClient connects to the configured MongoDB deployment.
func NewMongoClient(ctx context.Context, cfg domain.MongoConfig) (*mongo.Client, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.PoolSize > 0 {
		opts.SetMaxPoolSize(cfg.PoolSize)
	}
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

// NewMongoHospitalRepository creates a repository over cfg.Database/cfg.Collection.
func NewMongoHospitalRepository(client *mongo.Client, cfg domain.MongoConfig, logger *logrus.Logger) *MongoHospitalRepository {
	collection := cfg.Collection
	if collection == "" {
		collection = defaultHospitalCollection
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MongoHospitalRepository{
		collection: client.Database(cfg.Database).Collection(collection),
		timeout:    timeout,
		log:        logger,
	}
}

// ListActiveProviders returns every hospital with isActive set, sorted by id.
func (r *MongoHospitalRepository) ListActiveProviders(ctx context.Context) ([]domain.ProviderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		r.log.WithError(err).Error("Failed to query hospitals collection")
		return nil, fmt.Errorf("%w: querying hospitals: %v", domain.ErrCatalogUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []hospitalDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decoding hospitals: %v", domain.ErrCatalogUnavailable, err)
	}

	providers := make([]domain.ProviderRecord, 0, len(docs))
	for i := range docs {
		providers = append(providers, docs[i].toRecord())
	}
	return providers, nil
}

// GetProvider retrieves one hospital by id.
func (r *MongoHospitalRepository) GetProvider(ctx context.Context, id string) (*domain.ProviderRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc hospitalDocument
	if err := r.collection.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("hospital %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"hospital_id": id,
			"error":       err,
		}).Error("Failed to get hospital")
		return nil, fmt.Errorf("%w: getting hospital: %v", domain.ErrCatalogUnavailable, err)
	}

	p := doc.toRecord()
	return &p, nil
}

// idFilter matches id as stored by this repository or, when it is a hex
// ObjectID, as generated by the driver for documents inserted elsewhere.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{oid, id}}}
	}
	return bson.M{"_id": id}
}

// UpsertAll replaces or inserts every record.
func (r *MongoHospitalRepository) UpsertAll(ctx context.Context, providers []domain.ProviderRecord) error {
	if len(providers) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(providers))
	for i := range providers {
		if err := providers[i].Validate(); err != nil {
			return err
		}
		doc := newHospitalDocument(&providers[i], time.Now().UTC())
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	result, err := r.collection.BulkWrite(ctx, models)
	if err != nil {
		return fmt.Errorf("writing hospitals: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"upserted": result.UpsertedCount,
		"modified": result.ModifiedCount,
	}).Info("Hospitals upserted")
	return nil
}

func newHospitalDocument(p *domain.ProviderRecord, now time.Time) hospitalDocument {
	doc := hospitalDocument{
		ID:          p.ID,
		Name:        p.Name,
		Specialties: p.Specialties,
		EmergencyCapacity: mongoCapacity{
			Total:     p.EmergencyCapacity.Total,
			Available: p.EmergencyCapacity.Available,
			Doctors:   p.EmergencyCapacity.Doctors,
			Equipment: p.EmergencyCapacity.Equipment,
		},
		Doctors:       make([]mongoDoctor, 0, len(p.Doctors)),
		Equipment:     make([]mongoEquipment, 0, len(p.Equipment)),
		ContactNumber: p.ContactNumber,
		Email:         p.Email,
		Rating:        p.Rating,
		IsActive:      p.IsActive,
		UpdatedAt:     now,
	}
	if doc.Specialties == nil {
		doc.Specialties = []string{}
	}
	if p.Location != nil {
		doc.Location = &mongoLocation{Lat: p.Location.Lat, Lng: p.Location.Lng, Address: p.Location.Address}
	}
	for _, d := range p.Doctors {
		doc.Doctors = append(doc.Doctors, mongoDoctor(d))
	}
	for _, e := range p.Equipment {
		doc.Equipment = append(doc.Equipment, mongoEquipment(e))
	}
	return doc
}

func (d *hospitalDocument) toRecord() domain.ProviderRecord {
	p := domain.ProviderRecord{
		ID:          d.ID,
		Name:        d.Name,
		Specialties: d.Specialties,
		EmergencyCapacity: domain.EmergencyCapacity{
			Total:     d.EmergencyCapacity.Total,
			Available: d.EmergencyCapacity.Available,
			Doctors:   d.EmergencyCapacity.Doctors,
			Equipment: d.EmergencyCapacity.Equipment,
		},
		ContactNumber: d.ContactNumber,
		Email:         d.Email,
		Rating:        d.Rating,
		IsActive:      d.IsActive,
	}
	if p.Specialties == nil {
		p.Specialties = []string{}
	}
	if d.Location != nil {
		p.Location = &domain.Location{Lat: d.Location.Lat, Lng: d.Location.Lng, Address: d.Location.Address}
	}
	for _, doc := range d.Doctors {
		p.Doctors = append(p.Doctors, domain.Doctor(doc))
	}
	for _, e := range d.Equipment {
		p.Equipment = append(p.Equipment, domain.EquipmentItem(e))
	}
	return p
}
