package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lessonloop/api/internal/config"
	"github.com/lessonloop/api/internal/database"
	"github.com/lessonloop/api/internal/model"
	"github.com/lessonloop/api/internal/recurrence"
)

var subjects = []string{"Math", "Physics", "Chemistry", "Biology", "English", "History"}

func main() {
	groupCount := flag.Int("groups", 4, "Number of student groups to create")
	studentsPerGroup := flag.Int("students", 8, "Number of students per group")
	templateCount := flag.Int("templates", 6, "Number of session templates to create")
	flag.Parse()

	log.Printf("Seeding %d groups x %d students and %d templates", *groupCount, *studentsPerGroup, *templateCount)

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	advisorID := uuid.New()
	teacherID := uuid.New()

	groups, err := seedGroups(db, advisorID, *groupCount, *studentsPerGroup)
	if err != nil {
		log.Fatalf("Failed to seed groups: %v", err)
	}

	inserted, skipped := seedTemplates(db, teacherID, advisorID, groups, *templateCount)
	log.Printf("Seeding complete. Templates inserted=%d, skipped=%d", inserted, skipped)
}

func seedGroups(db *gorm.DB, advisorID uuid.UUID, count, studentsPerGroup int) ([]model.StudentGroup, error) {
	groups := make([]model.StudentGroup, 0, count)
	for i := 0; i < count; i++ {
		group := model.StudentGroup{
			Name:      fmt.Sprintf("Group %c", 'A'+i),
			AdvisorID: advisorID,
			IsActive:  true,
		}
		if err := db.Create(&group).Error; err != nil {
			return nil, err
		}

		members := make([]model.GroupMember, 0, studentsPerGroup)
		for j := 0; j < studentsPerGroup; j++ {
			members = append(members, model.GroupMember{
				GroupID:   group.ID,
				StudentID: uuid.New(),
				JoinedAt:  time.Now(),
			})
		}
		if err := db.Create(&members).Error; err != nil {
			return nil, err
		}

		groups = append(groups, group)
		log.Printf("Created %s with %d students", group.Name, studentsPerGroup)
	}
	return groups, nil
}

func seedTemplates(db *gorm.DB, teacherID, advisorID uuid.UUID, groups []model.StudentGroup, count int) (int, int) {
	recurrences := []model.RecurrenceType{model.RecurrenceWeekly, model.RecurrenceBiweekly, model.RecurrenceMonthly}
	startDate := recurrence.DateOnly(time.Now()).AddDate(0, 0, -28)

	inserted, skipped := 0, 0
	for i := 0; i < count; i++ {
		subject := subjects[i%len(subjects)]
		template := model.SessionTemplate{
			Title:           fmt.Sprintf("%s weekly session", subject),
			TeacherID:       teacherID,
			Subject:         subject,
			Level:           fmt.Sprintf("L%d", 1+i%3),
			DayOfWeek:       i % 7,
			StartTime:       fmt.Sprintf("%02d:00", 9+i%8),
			DurationMinutes: 60,
			RecurrenceType:  recurrences[i%len(recurrences)],
			StartDate:       startDate,
			Status:          model.TemplateActive,
		}

		var existing model.SessionTemplate
		if err := db.Where("title = ? AND teacher_id = ?", template.Title, teacherID).First(&existing).Error; err == nil {
			skipped++
			continue
		}

		if err := db.Create(&template).Error; err != nil {
			log.Printf("Failed to create template %q: %v", template.Title, err)
			skipped++
			continue
		}

		// Assign each template to one seeded group.
		group := groups[i%len(groups)]
		assignment := model.GroupAssignment{
			TemplateID:   template.ID,
			GroupID:      group.ID,
			AdvisorID:    advisorID,
			IsActive:     true,
			AssignedDate: time.Now(),
		}
		if err := db.Create(&assignment).Error; err != nil {
			log.Printf("Failed to assign template %q to %s: %v", template.Title, group.Name, err)
		}

		inserted++
	}
	return inserted, skipped
}
