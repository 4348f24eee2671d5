package model

// QuestionDifficulty identifies one of the five ordered difficulty buckets.
type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "easy"
	DifficultyMedium QuestionDifficulty = "medium"
	DifficultyHard   QuestionDifficulty = "hard"
	DifficultyExpert QuestionDifficulty = "expert"
	DifficultyMaster QuestionDifficulty = "master"
)

// DifficultyBucket maps a rating band to a contiguous question id range.
type DifficultyBucket struct {
	Difficulty QuestionDifficulty
	MaxRating  int // exclusive upper bound; 0 means unbounded
	MinID      int
	MaxID      int
}

var buckets = []DifficultyBucket{
	{Difficulty: DifficultyEasy, MaxRating: 1100, MinID: 1, MaxID: 10},
	{Difficulty: DifficultyMedium, MaxRating: 1300, MinID: 11, MaxID: 20},
	{Difficulty: DifficultyHard, MaxRating: 1500, MinID: 21, MaxID: 30},
	{Difficulty: DifficultyExpert, MaxRating: 1800, MinID: 31, MaxID: 40},
	{Difficulty: DifficultyMaster, MaxRating: 0, MinID: 41, MaxID: 50},
}

// BucketForRating maps an averaged pair rating into its difficulty bucket.
func BucketForRating(avgRating int) DifficultyBucket {
	for _, b := range buckets {
		if b.MaxRating == 0 || avgRating < b.MaxRating {
			return b
		}
	}
	return buckets[len(buckets)-1]
}

type TestCase struct {
	TestCaseID     string   `bson:"test_case_id" json:"test_case_id"`
	Input          []string `bson:"input" json:"input"`
	ExpectedOutput string   `bson:"expected_output" json:"expected_output"`
}

type QuestionConstraints struct {
	NMin int `bson:"n_min" json:"n_min"`
	NMax int `bson:"n_max" json:"n_max"`
}

type QuestionExample struct {
	Input  []string `bson:"input" json:"input"`
	Output string   `bson:"output" json:"output"`
}

type Question struct {
	QuestionID   int                 `bson:"question_id" json:"question_id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	InputFormat  []string            `bson:"input_format" json:"input_format"`
	OutputFormat string              `bson:"output_format" json:"output_format"`
	Constraints  QuestionConstraints `bson:"constraints" json:"constraints"`
	Example      QuestionExample     `bson:"example" json:"example"`
	TestCases    []TestCase          `bson:"test_cases" json:"-"`
}

// Public strips the hidden test cases for the reveal broadcast.
func (q *Question) Public() map[string]any {
	return map[string]any{
		"question_id":   q.QuestionID,
		"title":         q.Title,
		"description":   q.Description,
		"input_format":  q.InputFormat,
		"output_format": q.OutputFormat,
		"constraints":   q.Constraints,
		"example":       q.Example,
	}
}
