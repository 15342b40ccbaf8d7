package dataset

import (
	"context"
	"fmt"
	"math/rand"

	"datalens/internal/common"
)

// FilmsStats summarizes the films dataset for the API sidebar endpoint.
type FilmsStats struct {
	Movies          int     `json:"movies"`
	Directors       int     `json:"directors"`
	Actors          int     `json:"actors"`
	AverageRating   float64 `json:"average_rating"`
	TotalBoxOfficeM float64 `json:"total_box_office_millions"`
}

// FilmsStats computes the headline numbers shown alongside the films
// assistant. Counts only; no row-level data leaves the store.
func (s *Store) FilmsStats(ctx context.Context) (*FilmsStats, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("dataset store not initialised")
	}
	stats := &FilmsStats{}
	if err := s.db.GetContext(ctx, &stats.Movies, `SELECT COUNT(*) FROM movies`); err != nil {
		return nil, fmt.Errorf("count movies: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.Directors, `SELECT COUNT(*) FROM directors`); err != nil {
		return nil, fmt.Errorf("count directors: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.Actors, `SELECT COUNT(*) FROM actors`); err != nil {
		return nil, fmt.Errorf("count actors: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.AverageRating, `SELECT COALESCE(AVG(rating), 0) FROM movies`); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalBoxOfficeM, `SELECT COALESCE(SUM(box_office_millions), 0) FROM movies`); err != nil {
		return nil, fmt.Errorf("total box office: %w", err)
	}
	return stats, nil
}

var filmsSchemaStatements = []string{
	`DROP TABLE IF EXISTS movies;`,
	`DROP TABLE IF EXISTS directors;`,
	`DROP TABLE IF EXISTS actors;`,
	`CREATE TABLE directors (
                director_id INTEGER PRIMARY KEY AUTOINCREMENT,
                director_name TEXT NOT NULL,
                birth_year INTEGER,
                nationality TEXT
        );`,
	`CREATE TABLE actors (
                actor_id INTEGER PRIMARY KEY AUTOINCREMENT,
                actor_name TEXT NOT NULL,
                birth_year INTEGER,
                nationality TEXT
        );`,
	`CREATE TABLE movies (
                movie_id INTEGER PRIMARY KEY AUTOINCREMENT,
                title TEXT NOT NULL,
                director_id INTEGER,
                lead_actor_id INTEGER,
                genre TEXT NOT NULL,
                release_year INTEGER NOT NULL,
                runtime_minutes INTEGER NOT NULL,
                rating REAL,
                box_office_millions REAL,
                studio TEXT,
                FOREIGN KEY (director_id) REFERENCES directors(director_id),
                FOREIGN KEY (lead_actor_id) REFERENCES actors(actor_id)
        );`,
}

var movieTitles = []string{
	"The Last Journey", "Midnight Dreams", "City Lights", "Ocean's Call",
	"Silent Echo", "Rising Storm", "Dark Waters", "Golden Hour",
	"Broken Wings", "Eternal Summer", "Lost Paradise", "Winter's End",
	"Secret Garden", "Forgotten Path", "Distant Stars", "Hidden Truth",
	"Wild Hearts", "Crimson Sky", "Silver Moon", "Diamond City",
	"Iron Will", "Velvet Night", "Crystal Dawn", "Shadow Dance",
	"Thunder Road", "Whisper Wind", "Frozen Fire", "Desert Rose",
	"Mountain Peak", "River Song", "Forest Deep", "Valley Low",
	"Sunrise Bay", "Sunset Hill", "Starlight Avenue", "Moonbeam Street",
	"Rainbow Bridge", "Cloud Nine", "Storm Warning", "Calm Waters",
}

var directorNames = []string{
	"Christopher Nolan", "Martin Scorsese", "Quentin Tarantino", "Steven Spielberg",
	"James Cameron", "Ridley Scott", "Peter Jackson", "Denis Villeneuve",
	"Greta Gerwig", "Wes Anderson", "Bong Joon-ho", "Guillermo del Toro",
	"Sofia Coppola", "Kathryn Bigelow", "Ava DuVernay", "Jordan Peele",
	"David Fincher", "Spike Lee", "Coen Brothers", "Paul Thomas Anderson",
}

var actorNames = []string{
	"Tom Hanks", "Meryl Streep", "Leonardo DiCaprio", "Cate Blanchett",
	"Denzel Washington", "Frances McDormand", "Robert De Niro", "Viola Davis",
	"Brad Pitt", "Emma Stone", "Morgan Freeman", "Natalie Portman",
	"Christian Bale", "Scarlett Johansson", "Daniel Day-Lewis", "Jennifer Lawrence",
	"Al Pacino", "Kate Winslet", "Anthony Hopkins", "Charlize Theron",
	"Will Smith", "Nicole Kidman", "Matt Damon", "Julia Roberts",
	"Johnny Depp", "Sandra Bullock", "Tom Cruise", "Angelina Jolie",
	"George Clooney", "Reese Witherspoon", "Ryan Gosling", "Amy Adams",
	"Chris Hemsworth", "Lupita Nyong'o", "Idris Elba", "Tilda Swinton",
	"Michael B. Jordan", "Saoirse Ronan", "Timothée Chalamet", "Zendaya",
	"Samuel L. Jackson", "Jessica Chastain", "Hugh Jackman", "Anne Hathaway",
	"Jake Gyllenhaal", "Emma Watson", "Benedict Cumberbatch", "Margot Robbie",
	"Ryan Reynolds", "Gal Gadot", "Chris Evans", "Brie Larson",
	"Mark Ruffalo", "Tessa Thompson", "Oscar Isaac", "Florence Pugh",
	"Adam Driver", "Mahershala Ali", "Rami Malek", "Olivia Colman",
}

var (
	filmGenres            = []string{"Action", "Drama", "Comedy", "Thriller", "Sci-Fi", "Horror", "Romance", "Adventure"}
	filmStudios           = []string{"Warner Bros", "Universal", "Paramount", "20th Century", "Columbia", "MGM", "Lionsgate", "A24"}
	directorNationalities = []string{"American", "British", "French", "Italian", "Korean", "Mexican"}
	actorNationalities    = []string{"American", "British", "Australian", "Canadian", "Irish"}
)

// seedMovieCount matches the sample database shipped with the original demo.
const seedMovieCount = 600

// SeedFilms drops and recreates the films tables and fills them with
// generated sample data. The seed fixes the random source so repeated runs
// produce the same database.
func (s *Store) SeedFilms(ctx context.Context, seed int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("dataset store not initialised")
	}
	logger := common.Logger()
	rng := rand.New(rand.NewSource(seed))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range filmsSchemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("films schema statement %d: %w", i+1, err)
		}
	}

	for _, name := range directorNames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO directors (director_name, birth_year, nationality) VALUES (?, ?, ?)`,
			name, 1940+rng.Intn(41), directorNationalities[rng.Intn(len(directorNationalities))]); err != nil {
			return fmt.Errorf("insert director: %w", err)
		}
	}
	for _, name := range actorNames {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actors (actor_name, birth_year, nationality) VALUES (?, ?, ?)`,
			name, 1950+rng.Intn(41), actorNationalities[rng.Intn(len(actorNationalities))]); err != nil {
			return fmt.Errorf("insert actor: %w", err)
		}
	}

	for i := 0; i < seedMovieCount; i++ {
		title := ""
		if i < len(movieTitles) {
			title = movieTitles[i]
		} else {
			title = fmt.Sprintf("%s %d", movieTitles[rng.Intn(len(movieTitles))], i/len(movieTitles)+1)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO movies
                        (title, director_id, lead_actor_id, genre, release_year, runtime_minutes, rating, box_office_millions, studio)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			title,
			1+rng.Intn(len(directorNames)),
			1+rng.Intn(len(actorNames)),
			filmGenres[rng.Intn(len(filmGenres))],
			1990+rng.Intn(35),
			90+rng.Intn(91),
			roundTo(5.0+rng.Float64()*4.5, 1),
			roundTo(10+rng.Float64()*790, 1),
			filmStudios[rng.Intn(len(filmStudios))]); err != nil {
			return fmt.Errorf("insert movie: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.invalidateSchema()
	logger.Info("dataset: films seeded",
		"movies", seedMovieCount, "directors", len(directorNames), "actors", len(actorNames))
	return nil
}

func roundTo(value float64, places int) float64 {
	shift := 1.0
	for i := 0; i < places; i++ {
		shift *= 10
	}
	return float64(int64(value*shift+0.5)) / shift
}

func (s *Store) invalidateSchema() {
	s.schema.mu.Lock()
	s.schema.text = ""
	s.schema.mu.Unlock()
}
