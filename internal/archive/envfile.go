package archive

import (
	"path/filepath"

	"github.com/joho/godotenv"
)

const EnvFileName = ".env"

// ReadEnvFile parses the dotenv file at the root of a project.
func ReadEnvFile(root string) (map[string]string, error) {
	return godotenv.Read(filepath.Join(root, EnvFileName))
}
