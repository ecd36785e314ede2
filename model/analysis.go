package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analysis is one completed anemia-detection upload.
// @Description Anemia detection result
type Analysis struct {
	gorm.Model
	UUID              string         `json:"uuid" gorm:"column:uuid;type:varchar(36);uniqueIndex" example:"3f1b7b0e-6c1e-4c55-9b1a-0a3e0c7e9d11"`
	Email             string         `json:"email" gorm:"column:email;type:varchar(191);index" example:"jane@example.com"`
	FileName          string         `json:"file_name" gorm:"column:file_name;type:varchar(255)" example:"smear.png"`
	Result            string         `json:"result" gorm:"column:result;type:varchar(64)" example:"blood"`
	Confidence        float64        `json:"confidence" gorm:"column:confidence" example:"97.4"`
	ImageURL          string         `json:"image_url" gorm:"column:image_url;type:varchar(512)"`
	AnnotatedImageURL string         `json:"annotated_image_url" gorm:"column:annotated_image_url;type:varchar(512)"`
	Detections        datatypes.JSON `json:"detections" gorm:"column:detections;type:json" swaggertype:"array,object"`
	AnemiaDetected    bool           `json:"anemia_detected" gorm:"column:anemia_detected" example:"false"`
	Message           string         `json:"message" gorm:"column:message;type:varchar(255)" example:"Normal (No Sickle Cells detected)."`
}

// ListAnalysesByEmail returns the newest analyses first.
func ListAnalysesByEmail(db *gorm.DB, email string, limit, offset int) ([]Analysis, int64, error) {
	var (
		out   []Analysis
		total int64
	)
	q := db.Model(&Analysis{}).Where("email = ?", email)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
