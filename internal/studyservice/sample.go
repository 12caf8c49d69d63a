package studyservice

import "github.com/starford/smartstudy/internal/models"

// SampleData returns the collections shown on first start.
func SampleData() models.Collections {
	return models.Collections{
		Subjects: []models.Subject{
			{ID: "1", Name: "Toán Cao Cấp", Description: "Giải tích và Đại số tuyến tính", Color: "bg-blue-500", Icon: "Calculator", CreatedAt: "2023-09-01T08:00:00.000Z"},
			{ID: "2", Name: "Lập Trình Web", Description: "React, TypeScript và Node.js", Color: "bg-indigo-500", Icon: "Code", CreatedAt: "2023-09-02T09:30:00.000Z"},
			{ID: "3", Name: "Lịch Sử Đảng", Description: "Lịch sử chính trị Việt Nam", Color: "bg-red-500", Icon: "History", CreatedAt: "2023-09-03T07:15:00.000Z"},
			{ID: "4", Name: "Tiếng Anh", Description: "IELTS Preparation", Color: "bg-sky-500", Icon: "Globe", CreatedAt: "2023-09-05T14:20:00.000Z"},
		},
		Tasks: []models.Task{
			{ID: "t1", SubjectID: "1", Title: "Làm bài tập chương 3", Status: models.StatusTodo, DueDate: "2023-11-20", Priority: models.PriorityHigh},
			{ID: "t2", SubjectID: "1", Title: "Ôn tập giữa kỳ", Status: models.StatusDone, DueDate: "2023-11-15", Priority: models.PriorityHigh},
			{ID: "t3", SubjectID: "2", Title: "Hoàn thành Project Frontend", Status: models.StatusDoing, DueDate: "2023-11-25", Priority: models.PriorityMedium},
			{ID: "t4", SubjectID: "2", Title: "Đọc tài liệu React Hooks", Status: models.StatusDone, DueDate: "2023-11-10", Priority: models.PriorityLow},
			{ID: "t5", SubjectID: "4", Title: "Viết bài luận Task 2", Status: models.StatusTodo, DueDate: "2023-11-22", Priority: models.PriorityHigh},
		},
		Notes: []models.Note{
			{ID: "n1", SubjectID: "2", Title: "Ghi chú về useEffect", Content: "useEffect chạy sau mỗi lần render. Cần chú ý dependency array để tránh infinite loop.", LastModified: "2023-11-12"},
			{ID: "n2", SubjectID: "1", Title: "Công thức đạo hàm", Content: "Đạo hàm của sin(x) là cos(x). Đạo hàm của cos(x) là -sin(x).", LastModified: "2023-11-14"},
		},
		Resources: []models.Resource{
			{ID: "r1", SubjectID: "2", Title: "React Documentation", Type: models.ResourceLink, URL: "https://react.dev"},
			{ID: "r2", SubjectID: "1", Title: "Giáo trình Giải tích.pdf", Type: models.ResourceFile, URL: "#"},
		},
		Trash: []models.TrashItem{},
	}
}
