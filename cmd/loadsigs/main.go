package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/config"
	"github.com/yochit07/cyberknights/internal/domain"
	"github.com/yochit07/cyberknights/internal/repository"
)

// sigEntry 签名文件条目
type sigEntry struct {
	SHA256Hash string `json:"sha256_hash"`
	ThreatName string `json:"threat_name"`
	Severity   string `json:"severity"`
}

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	sigFile := flag.String("file", "", "签名 JSON 文件路径")
	flag.Parse()

	if *sigFile == "" {
		log.Fatal("usage: loadsigs -file signatures.json [-config configs/config.yaml]")
	}

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}

	data, err := os.ReadFile(*sigFile)
	if err != nil {
		log.Fatalf("Failed to read signature file: %v", err)
	}

	var entries []sigEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Fatalf("Failed to parse signature file: %v", err)
	}

	repo := repository.NewSignatureRepository(db, logger)
	ctx := context.Background()

	imported := 0
	skipped := 0
	for _, entry := range entries {
		hash := strings.ToLower(strings.TrimSpace(entry.SHA256Hash))
		if len(hash) != 64 || entry.ThreatName == "" {
			skipped++
			continue
		}

		severity := entry.Severity
		if severity == "" {
			severity = "high"
		}

		sig := &domain.MalwareSignature{
			SHA256Hash: hash,
			ThreatName: entry.ThreatName,
			Severity:   severity,
		}
		if err := repo.Upsert(ctx, sig); err != nil {
			log.Fatalf("Failed to upsert signature %s: %v", hash, err)
		}
		imported++
	}

	total, err := repo.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count signatures: %v", err)
	}

	fmt.Printf("✓ Imported %d signatures (%d skipped), %d total in database\n", imported, skipped, total)
}
