package services

import (
	"fmt"
	"sort"
	"strings"

	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(businesses []*models.Business) *models.InsightReport {
	report := &models.InsightReport{
		ByCategory: make(map[string]int),
	}

	if len(businesses) == 0 {
		return report
	}

	report.TotalBusinesses = len(businesses)

	var rated []*models.Business

	for _, b := range businesses {
		if b.Rating != nil {
			rated = append(rated, b)
		}
		if b.Website != "" {
			report.WithWebsite++
		} else {
			report.WithoutWebsite++
		}
		if b.Category != "" {
			report.ByCategory[b.Category]++
		}
	}

	report.RatedBusinesses = len(rated)

	if len(rated) > 0 {
		report.MinRating = *rated[0].Rating
		report.MaxRating = *rated[0].Rating
		var total float64
		for _, b := range rated {
			r := *b.Rating
			total += r
			if r < report.MinRating {
				report.MinRating = r
			}
			if r > report.MaxRating {
				report.MaxRating = r
			}
		}
		report.AverageRating = round2(total / float64(len(rated)))
		report.MinRating = round2(report.MinRating)
		report.MaxRating = round2(report.MaxRating)
	}

	// Top 5 by rating, review count breaking ties
	sort.SliceStable(rated, func(i, j int) bool {
		ri, rj := *rated[i].Rating, *rated[j].Rating
		if ri != rj {
			return ri > rj
		}
		return reviews(rated[i]) > reviews(rated[j])
	})
	if len(rated) > 5 {
		report.TopRated = rated[:5]
	} else {
		report.TopRated = rated
	}

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 LEAD SCRAPE INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total businesses scraped : \033[1m%d\033[0m\n", r.TotalBusinesses)
	fmt.Printf("  With a website           : \033[1m%d\033[0m\n", r.WithWebsite)
	fmt.Printf("  Without a website        : \033[1m%d\033[0m\n", r.WithoutWebsite)
	fmt.Println()

	// Rating stats
	fmt.Printf("\033[1;33m  Rating Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.RatedBusinesses > 0 {
		fmt.Printf("  Rated businesses : \033[1m%d\033[0m\n", r.RatedBusinesses)
		fmt.Printf("  Average rating   : \033[1;32m%.2f ★\033[0m\n", r.AverageRating)
		fmt.Printf("  Minimum rating   : \033[1;32m%.2f ★\033[0m\n", r.MinRating)
		fmt.Printf("  Maximum rating   : \033[1;32m%.2f ★\033[0m\n", r.MaxRating)
	} else {
		fmt.Printf("  No rating data available\n")
	}
	fmt.Println()

	// Top 5 by rating
	fmt.Printf("\033[1;33m  Top 5 Highest Rated\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated businesses found\n")
	} else {
		for i, b := range r.TopRated {
			name := truncate(b.Name, 38)
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%.2f ★\033[0m (%d reviews)\n",
				i+1, name, *b.Rating, reviews(b))
		}
	}
	fmt.Println()

	// Businesses by category
	fmt.Printf("\033[1;33m  Businesses by Category\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByCategory) == 0 {
		fmt.Printf("  No category data\n")
	} else {
		type catCount struct {
			cat   string
			count int
		}
		var cats []catCount
		for cat, cnt := range r.ByCategory {
			cats = append(cats, catCount{cat, cnt})
		}
		sort.Slice(cats, func(i, j int) bool {
			return cats[i].count > cats[j].count
		})
		for _, cc := range cats {
			bar := strings.Repeat("█", cc.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(cc.cat, 28), bar, cc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func reviews(b *models.Business) int {
	if b.ReviewsCount == nil {
		return 0
	}
	return *b.ReviewsCount
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
